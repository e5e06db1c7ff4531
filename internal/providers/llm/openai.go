package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pocketkart/pocketbot/internal/config"
	"github.com/pocketkart/pocketbot/internal/core"
)

const defaultTemperature = 0.3

// Client talks to an OpenAI-compatible backend for generation, embeddings
// and moderation.
type Client struct {
	baseProvider
	chatModel       string
	embeddingModel  string
	moderationModel string
}

func NewClient(cfg *config.OpenAIConfig) *Client {
	return &Client{
		baseProvider:    newBaseProvider(cfg.BaseURL, cfg.APIKey, cfg.Timeout),
		chatModel:       cfg.ChatModel,
		embeddingModel:  cfg.EmbeddingModel,
		moderationModel: cfg.ModerationModel,
	}
}

func buildMessages(req core.GenerationRequest) []core.ChatMessage {
	messages := make([]core.ChatMessage, 0, len(req.Context)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, core.ChatMessage{Role: core.RoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, req.Context...)
	messages = append(messages, core.ChatMessage{Role: core.RoleUser, Content: req.UserMessage})
	return messages
}

func (c *Client) Generate(ctx context.Context, req core.GenerationRequest) (string, error) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	payload := map[string]any{
		"model":       c.chatModel,
		"temperature": temperature,
		"messages":    buildMessages(req),
	}

	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/chat/completions", payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return parseChatResponse(resp)
}

func parseChatResponse(resp *http.Response) (string, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty choices: %s", string(data))
	}
	return result.Choices[0].Message.Content, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := map[string]any{
		"model": c.embeddingModel,
		"input": texts,
	}

	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/embeddings", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}

	vectors := make([][]float32, 0, len(result.Data))
	for _, d := range result.Data {
		vectors = append(vectors, d.Embedding)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
	}
	return vectors, nil
}

// Moderate classifies input text. Callers must not invoke it when no
// moderation model is configured; the guardrail handles that case by
// failing open.
func (c *Client) Moderate(ctx context.Context, text string) (core.ModerationResult, error) {
	payload := map[string]any{
		"model": c.moderationModel,
		"input": text,
	}

	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/moderations", payload)
	if err != nil {
		return core.ModerationResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.ModerationResult{}, readError(resp)
	}

	var result struct {
		Results []struct {
			Flagged    bool            `json:"flagged"`
			Categories map[string]bool `json:"categories"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return core.ModerationResult{}, fmt.Errorf("decode moderation: %w", err)
	}
	if len(result.Results) == 0 {
		return core.ModerationResult{}, nil
	}

	return core.ModerationResult{
		Flagged:    result.Results[0].Flagged,
		Categories: result.Results[0].Categories,
	}, nil
}
