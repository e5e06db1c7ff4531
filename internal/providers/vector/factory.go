// Package vector provides the upsert/query/delete abstraction over the
// similarity-search backend. Exactly one instance should be constructed per
// process and shared: the local backend's file has no cross-writer
// coordination.
package vector

import (
	"context"
	"fmt"

	"github.com/pocketkart/pocketbot/internal/config"
	"github.com/pocketkart/pocketbot/internal/core"
)

func NewIndex(ctx context.Context, cfg *config.VectorConfig, localPath string) (core.VectorIndex, error) {
	switch cfg.Provider {
	case config.VectorProviderPinecone:
		if cfg.PineconeHost == "" || cfg.PineconeAPIKey == "" {
			return nil, fmt.Errorf("pinecone configuration missing: set PINECONE_HOST and PINECONE_API_KEY")
		}
		return NewPinecone(cfg), nil
	case config.VectorProviderLocal:
		return NewLocal(localPath), nil
	default:
		return nil, fmt.Errorf("unknown vector provider %q", cfg.Provider)
	}
}
