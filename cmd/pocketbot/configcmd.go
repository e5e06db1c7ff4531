package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pocketkart/pocketbot/internal/config"
	"github.com/pocketkart/pocketbot/pkg/env"
	"github.com/pocketkart/pocketbot/pkg/log"
)

// configCmd prints the effective configuration in .env form, secrets
// included, for debugging a broken deployment.
var configCmd = &cobra.Command{
	Use:          "config",
	Short:        "Print the effective configuration",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		envPath := filepath.Join(config.GetRuntimePath(), ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				log.FromCtx(ctx).Warn().Err(err).Str("path", envPath).Msg("failed to load .env file")
			}
		}

		sections := []any{
			config.NewAppConfig(ctx),
			config.NewOpenAIConfig(ctx),
			config.NewVectorConfig(ctx),
			config.NewWebSearchConfig(ctx),
			config.NewOrdersConfig(ctx),
		}
		for _, section := range sections {
			out, err := env.MarshalEnv(section)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
