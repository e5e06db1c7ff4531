package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/pocketkart/pocketbot/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"POCKETBOT_RUNTIME_PATH" envDefault:".pocketbot"`

	// HTTP surface
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":4000"`

	// Transport Flags
	EnableTelegram bool `env:"ENABLE_TELEGRAM" envDefault:"false"`

	// Document ingestion
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"15728640"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "pocketbot.db")
}

func (c AppConfig) GetVectorStorePath() string {
	return filepath.Join(c.RuntimePath, "vector-store.json")
}
