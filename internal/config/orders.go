package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pocketkart/pocketbot/pkg/log"
)

type OrdersConfig struct {
	APIURL  string        `env:"ORDERS_API_URL"`
	APIKey  string        `env:"ORDERS_API_KEY"`
	Timeout time.Duration `env:"ORDERS_API_TIMEOUT" envDefault:"10s"`
}

func NewOrdersConfig(ctx context.Context) *OrdersConfig {
	c := &OrdersConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Orders config")
	}
	return c
}

func (c OrdersConfig) Configured() bool {
	return c.APIURL != ""
}
