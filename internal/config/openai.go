package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pocketkart/pocketbot/pkg/log"
)

type OpenAIConfig struct {
	BaseURL        string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com"`
	APIKey         string `env:"OPENAI_API_KEY,required,notEmpty"`
	ChatModel      string `env:"OPENAI_CHAT_MODEL" envDefault:"gpt-4o-mini"`
	EmbeddingModel string `env:"OPENAI_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`

	// Empty means moderation is unconfigured and the guardrail fails open.
	ModerationModel string `env:"OPENAI_MODERATION_MODEL"`

	Timeout time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
}

func NewOpenAIConfig(ctx context.Context) *OpenAIConfig {
	c := &OpenAIConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse OpenAI config")
	}
	return c
}
