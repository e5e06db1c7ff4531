package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pocketkart/pocketbot/pkg/log"
)

const (
	VectorProviderLocal    = "local"
	VectorProviderPinecone = "pinecone"
)

type VectorConfig struct {
	Provider  string `env:"VECTOR_DB_PROVIDER" envDefault:"local"`
	Namespace string `env:"VECTOR_DB_NAMESPACE" envDefault:"pocketkart"`

	// Pinecone-compatible backend
	PineconeHost   string        `env:"PINECONE_HOST"`
	PineconeAPIKey string        `env:"PINECONE_API_KEY"`
	Timeout        time.Duration `env:"VECTOR_DB_TIMEOUT" envDefault:"15s"`
}

func NewVectorConfig(ctx context.Context) *VectorConfig {
	c := &VectorConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Vector config")
	}
	return c
}
