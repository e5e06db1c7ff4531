package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/pocketkart/pocketbot/internal/config"
	"github.com/pocketkart/pocketbot/internal/core"
	"github.com/pocketkart/pocketbot/internal/providers/llm"
	"github.com/pocketkart/pocketbot/internal/providers/orders"
	"github.com/pocketkart/pocketbot/internal/providers/vector"
	"github.com/pocketkart/pocketbot/internal/providers/websearch"
	"github.com/pocketkart/pocketbot/internal/service/concierge"
	"github.com/pocketkart/pocketbot/internal/service/features"
	"github.com/pocketkart/pocketbot/internal/service/guardrail"
	"github.com/pocketkart/pocketbot/internal/service/memory"
	"github.com/pocketkart/pocketbot/internal/service/rag"
	"github.com/pocketkart/pocketbot/internal/storage/sqlite"
	"github.com/pocketkart/pocketbot/internal/transport/httpapi"
	"github.com/pocketkart/pocketbot/internal/transport/telegram"
	"github.com/pocketkart/pocketbot/internal/transport/ws"
	"github.com/pocketkart/pocketbot/pkg/log"
	"github.com/pocketkart/pocketbot/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	openaiCfg := config.NewOpenAIConfig(ctx)
	vectorCfg := config.NewVectorConfig(ctx)
	searchCfg := config.NewWebSearchConfig(ctx)
	ordersCfg := config.NewOrdersConfig(ctx)

	// 2. Storage
	db, err := initStorage(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))

	// 3. LLM provider: generation, embeddings and moderation behind one client
	llmClient := llm.NewClient(openaiCfg)

	var moderator core.Moderator
	if openaiCfg.ModerationModel != "" {
		moderator = llmClient
	}

	// 4. Vector index, shared by retrieval and long-term memory
	index, err := vector.NewIndex(ctx, vectorCfg, appCfg.GetVectorStorePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize vector index")
	}

	// 5. Optional collaborators
	var searcher core.WebSearcher
	if searchCfg.Configured() {
		searcher = websearch.NewClient(searchCfg)
	} else {
		logger.Info().Msg("web search is not configured, skipping")
	}

	var lookup core.OrderLookup
	if ordersCfg.Configured() {
		lookup = orders.NewClient(ordersCfg)
	} else {
		logger.Info().Msg("orders API is not configured, skipping")
	}

	// 6. Domain services
	memSvc := memory.NewService(
		sqlite.NewConversationsRepo(db),
		sqlite.NewMemoriesRepo(db),
		llmClient,
		llmClient,
		index,
	)
	ragSvc := rag.NewService(llmClient, index)
	switchboard := features.NewSwitchboard()
	hub := ws.NewHub()
	services = append(services, newSweeper(hub))

	conciergeSvc := concierge.NewService(
		memSvc, ragSvc,
		guardrail.New(moderator),
		switchboard,
		llmClient, llmClient,
		sqlite.NewEscalationsRepo(db),
		concierge.Options{
			Searcher:   searcher,
			Orders:     lookup,
			Dispatcher: hub,
		},
	)

	// 7. Transports
	services = append(services, httpapi.NewServer(appCfg, conciergeSvc, switchboard, hub, logger))

	if appCfg.EnableTelegram {
		tgCfg := config.NewTelegramConfig(ctx)
		bot, err := telegram.NewBot(ctx, tgCfg, conciergeSvc)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize telegram bot")
		}
		services = append(services, bot)
	}

	return services
}

func initStorage(ctx context.Context, cfg *config.AppConfig) (*sql.DB, error) {
	if err := os.MkdirAll(cfg.GetRuntimePath(), 0755); err != nil {
		return nil, err
	}
	return sqlite.NewDB(ctx, cfg.GetDatabasePath())
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}

// sweeper runs the hub's stale-stream reaper for the lifetime of the process.
type sweeper struct {
	hub *ws.Hub
}

func newSweeper(hub *ws.Hub) srv.Service {
	return &sweeper{hub: hub}
}

func (s *sweeper) Start(ctx context.Context) error {
	s.hub.Sweep(ctx, time.Minute)
	return nil
}

func (s *sweeper) Shutdown(ctx context.Context) error {
	return nil
}
