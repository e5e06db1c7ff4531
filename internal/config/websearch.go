package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pocketkart/pocketbot/pkg/log"
)

type WebSearchConfig struct {
	APIURL  string        `env:"WEB_SEARCH_API_URL"`
	APIKey  string        `env:"WEB_SEARCH_API_KEY"`
	Timeout time.Duration `env:"WEB_SEARCH_TIMEOUT" envDefault:"10s"`
}

func NewWebSearchConfig(ctx context.Context) *WebSearchConfig {
	c := &WebSearchConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse WebSearch config")
	}
	return c
}

// Configured reports whether the web-search collaborator can be used at all.
func (c WebSearchConfig) Configured() bool {
	return c.APIURL != "" && c.APIKey != ""
}
