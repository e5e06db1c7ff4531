package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketkart/pocketbot/internal/config"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer search-key", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "latest phones", body["query"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{
					"title":   "Phone roundup",
					"url":     "https://news.example/phones",
					"snippet": "<p>The <b>newest</b> phones compared.</p>",
				},
				{
					"title":   "Plain result",
					"url":     "https://news.example/plain",
					"snippet": "no markup here",
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(&config.WebSearchConfig{
		APIURL:  srv.URL,
		APIKey:  "search-key",
		Timeout: 5 * time.Second,
	})

	results, err := c.Search(context.Background(), "latest phones")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// HTML snippets are flattened to text.
	assert.NotContains(t, results[0].Snippet, "<")
	assert.Contains(t, results[0].Snippet, "newest")
	assert.Equal(t, "no markup here", results[1].Snippet)
}

func TestSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(&config.WebSearchConfig{APIURL: srv.URL, APIKey: "k"})
	_, err := c.Search(context.Background(), "anything")
	assert.Error(t, err)
}
