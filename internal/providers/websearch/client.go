package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/inbucket/html2text"
	"github.com/pocketkart/pocketbot/internal/config"
	"github.com/pocketkart/pocketbot/internal/core"
)

// Client calls the external web-search collaborator. Snippets come back from
// some providers with HTML markup; they are flattened to plain text before
// entering the generation context.
type Client struct {
	client  *http.Client
	apiURL  string
	apiKey  string
	timeout time.Duration
}

func NewClient(cfg *config.WebSearchConfig) *Client {
	return &Client{
		client:  &http.Client{Timeout: 60 * time.Second},
		apiURL:  cfg.APIURL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
	}
}

func (c *Client) Search(ctx context.Context, query string) ([]core.WebResult, error) {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search failed: %s", resp.Status)
	}

	var result struct {
		Results []core.WebResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	for i := range result.Results {
		result.Results[i].Snippet = cleanSnippet(result.Results[i].Snippet)
	}
	return result.Results, nil
}

func cleanSnippet(snippet string) string {
	if !strings.ContainsRune(snippet, '<') {
		return snippet
	}
	text, err := html2text.FromString(snippet, html2text.Options{OmitLinks: true})
	if err != nil {
		return snippet
	}
	return strings.TrimSpace(text)
}
