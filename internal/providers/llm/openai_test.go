package llm

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
	"github.com/pocketkart/pocketbot/internal/core"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.OpenAIConfig{
		BaseURL:         baseURL,
		APIKey:          "test-key",
		ChatModel:       "gpt-4o-mini",
		EmbeddingModel:  "text-embedding-3-small",
		ModerationModel: "omni-moderation-latest",
		Timeout:         5 * time.Second,
	})
}

func TestGenerate(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Hello shopper!"}},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	got, err := c.Generate(context.Background(), core.GenerationRequest{
		SystemPrompt: "be brief",
		Context:      []core.ChatMessage{{Role: core.RoleUser, Content: "earlier"}},
		UserMessage:  "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello shopper!", got)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)

	// System prompt first, history in the middle, user message last.
	msgs := gotBody["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "hi", msgs[2].(map[string]any)["content"])
	assert.InDelta(t, defaultTemperature, gotBody["temperature"].(float64), 1e-9)
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), core.GenerationRequest{UserMessage: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1, 0.2}},
				{"embedding": []float32{0.3, 0.4}},
			},
		})
	}))
	defer srv.Close()

	vecs, err := newTestClient(srv.URL).Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.InDelta(t, 0.3, vecs[1][0], 1e-6)
}

func TestEmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1}}},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestEmbedEmptyInput(t *testing.T) {
	vecs, err := newTestClient("http://unreachable.invalid").Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestModerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/moderations", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"flagged": true, "categories": map[string]bool{"harassment": true}},
			},
		})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Moderate(context.Background(), "bad text")
	require.NoError(t, err)
	assert.True(t, res.Flagged)
	assert.True(t, res.Categories["harassment"])
}
