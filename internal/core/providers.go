package core

import "context"

// GenerationRequest is what the assembler hands to the generation backend.
// Context carries the assembled system/history messages in order; the user
// message is appended last.
type GenerationRequest struct {
	SystemPrompt string
	Context      []ChatMessage
	UserMessage  string
	Temperature  float64
}

// Generator produces one complete reply.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// Streamer produces a reply incrementally, calling onDelta for every text
// fragment, and returns the final accumulated text.
type Streamer interface {
	GenerateStream(ctx context.Context, req GenerationRequest, onDelta func(delta string)) (string, error)
}

// Embedder turns texts into fixed-dimension vectors, one per input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ModerationResult is the verdict of the moderation capability.
type ModerationResult struct {
	Flagged    bool
	Categories map[string]bool
}

// Moderator classifies text as safe or flagged.
type Moderator interface {
	Moderate(ctx context.Context, text string) (ModerationResult, error)
}

// WebSearcher fetches fresh results for a query.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]WebResult, error)
}

// OrderLookup resolves the shopper's most recent order from the storefront.
type OrderLookup interface {
	Lookup(ctx context.Context, userID string) (OrderStatus, error)
}

// VectorIndex is the uniform contract over the remote and local vector
// backends. One shared instance per process: the local backend's file is not
// safe for uncoordinated concurrent writers.
type VectorIndex interface {
	Upsert(ctx context.Context, rec VectorRecord) error
	Query(ctx context.Context, vector []float32, topK int) ([]VectorMatch, error)
	Delete(ctx context.Context, id string) error
}
