package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/pankajg09/data-dictionary-system/pkg/config"
	"github.com/pankajg09/data-dictionary-system/pkg/database"
	"github.com/pankajg09/data-dictionary-system/pkg/handlers"
	"github.com/pankajg09/data-dictionary-system/pkg/llm"
	"github.com/pankajg09/data-dictionary-system/pkg/logging"
	"github.com/pankajg09/data-dictionary-system/pkg/middleware"
	"github.com/pankajg09/data-dictionary-system/pkg/prompts"
	"github.com/pankajg09/data-dictionary-system/pkg/repositories"
	"github.com/pankajg09/data-dictionary-system/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("version", Version),
		zap.String("addr", cfg.Server.Addr()),
		zap.Strings("provider_order", cfg.AI.ProviderOrder),
		zap.Duration("pipeline_budget", cfg.Pipeline.TotalBudget))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:             cfg.Database.URL,
		MaxConnections:  cfg.Database.MaxConnections,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Migrations run through database/sql (required by golang-migrate).
	sqlDB, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		sqlDB.Close()
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	sqlDB.Close()

	providers, err := buildProviders(cfg.AI, logger)
	if err != nil {
		logger.Fatal("Failed to configure LLM providers", zap.Error(err))
	}

	gatewayCfg := llm.DefaultGatewayConfig()
	if cfg.AI.AttemptTimeout > 0 {
		gatewayCfg.AttemptTimeout = cfg.AI.AttemptTimeout
	}
	if cfg.AI.MaxRetries >= 0 {
		gatewayCfg.MaxRetries = cfg.AI.MaxRetries
	}
	gateway := llm.NewGateway(providers, gatewayCfg, logger)

	analysisRepo := repositories.NewAnalysisRepository(db)
	entryRepo := repositories.NewDictionaryRepository(db)

	merger := services.NewMerger(logger)
	promptBudget := prompts.DefaultBudget()
	if cfg.Pipeline.MaxSourceChars > 0 {
		promptBudget = prompts.BudgetFor(cfg.Pipeline.MaxSourceChars)
	}
	analysisService := services.NewAnalysisService(analysisRepo, entryRepo, merger, gateway, services.PipelineConfig{
		TotalBudget:  cfg.Pipeline.TotalBudget,
		PromptBudget: promptBudget,
	}, logger)
	dictionaryService := services.NewDictionaryService(entryRepo, logger)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(Version, gateway.Providers(), logger)
	healthHandler.RegisterRoutes(mux)

	analysisHandler := handlers.NewAnalysisHandler(analysisService, cfg.Server.MaxUploadBytes, logger)
	analysisHandler.RegisterRoutes(mux)

	dictionaryHandler := handlers.NewDictionaryHandler(dictionaryService, logger)
	dictionaryHandler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      middleware.RequestLogger(logger)(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Starting data-dictionary-system",
			zap.String("addr", cfg.Server.Addr()),
			zap.String("version", Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}

	// Let in-flight analysis runs record their terminal state.
	analysisService.Wait()
}

// buildProviders constructs the fallback chain in configured order,
// skipping providers without credentials. At least one must be usable.
func buildProviders(cfg config.AIConfig, logger *zap.Logger) ([]llm.Provider, error) {
	var providers []llm.Provider

	for _, name := range cfg.ProviderOrder {
		switch name {
		case "openai":
			if cfg.OpenAI.APIKey == "" {
				logger.Warn("Skipping openai provider, OPENAI_API_KEY not set")
				continue
			}
			provider, err := llm.NewOpenAIProvider(&llm.OpenAIConfig{
				Endpoint:    cfg.OpenAI.Endpoint,
				Model:       cfg.OpenAI.Model,
				APIKey:      cfg.OpenAI.APIKey,
				Temperature: float64(cfg.OpenAI.Temperature),
			}, logger)
			if err != nil {
				return nil, err
			}
			providers = append(providers, provider)
		case "anthropic":
			if cfg.Anthropic.APIKey == "" {
				logger.Warn("Skipping anthropic provider, ANTHROPIC_API_KEY not set")
				continue
			}
			provider, err := llm.NewAnthropicProvider(&llm.AnthropicConfig{
				APIKey:    cfg.Anthropic.APIKey,
				Model:     cfg.Anthropic.Model,
				MaxTokens: cfg.Anthropic.MaxTokens,
			}, logger)
			if err != nil {
				return nil, err
			}
			providers = append(providers, provider)
		default:
			return nil, errors.New("unknown provider in provider_order: " + name)
		}
	}

	if len(providers) == 0 {
		return nil, errors.New("no LLM providers configured; set OPENAI_API_KEY or ANTHROPIC_API_KEY")
	}
	return providers, nil
}
