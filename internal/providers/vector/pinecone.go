package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pocketkart/pocketbot/internal/config"
	"github.com/pocketkart/pocketbot/internal/core"
)

// Pinecone talks to a managed Pinecone-compatible index over its REST data
// plane, scoped to a single namespace. The service's own ranking is returned
// as-is.
type Pinecone struct {
	client    *http.Client
	host      string
	apiKey    string
	namespace string
	timeout   time.Duration
}

func NewPinecone(cfg *config.VectorConfig) *Pinecone {
	return &Pinecone{
		client:    &http.Client{Timeout: 60 * time.Second},
		host:      cfg.PineconeHost,
		apiKey:    cfg.PineconeAPIKey,
		namespace: cfg.Namespace,
		timeout:   cfg.Timeout,
	}
}

func (p *Pinecone) doRequest(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Api-Key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	return resp, nil
}

func (p *Pinecone) Upsert(ctx context.Context, rec core.VectorRecord) error {
	payload := map[string]any{
		"vectors":   []core.VectorRecord{rec},
		"namespace": p.namespace,
	}

	resp, err := p.doRequest(ctx, "/vectors/upsert", payload)
	if err != nil {
		return fmt.Errorf("vector upsert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return httpError("vector upsert", resp)
	}
	return nil
}

func (p *Pinecone) Query(ctx context.Context, vector []float32, topK int) ([]core.VectorMatch, error) {
	payload := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
		"namespace":       p.namespace,
	}

	resp, err := p.doRequest(ctx, "/query", payload)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpError("vector query", resp)
	}

	var result struct {
		Matches []core.VectorMatch `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	return result.Matches, nil
}

func (p *Pinecone) Delete(ctx context.Context, id string) error {
	payload := map[string]any{
		"ids":       []string{id},
		"namespace": p.namespace,
	}

	resp, err := p.doRequest(ctx, "/vectors/delete", payload)
	if err != nil {
		return fmt.Errorf("vector delete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return httpError("vector delete", resp)
	}
	return nil
}

func httpError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("%s: http %d: %s", op, resp.StatusCode, string(data))
}
