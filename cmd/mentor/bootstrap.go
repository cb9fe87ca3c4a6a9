package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/philippgille/chromem-go"
	goopenai "github.com/sashabaranov/go-openai"

	"trade-mentor/internal/analysis"
	"trade-mentor/internal/auditlog"
	"trade-mentor/internal/interfaces"
	"trade-mentor/internal/llm/llmobs"
	"trade-mentor/internal/llm/noop"
	"trade-mentor/internal/llm/openai"
	"trade-mentor/internal/logger"
	"trade-mentor/internal/metrics"
	"trade-mentor/internal/pipeline"
	"trade-mentor/internal/prices"
	"trade-mentor/internal/server"
	"trade-mentor/internal/store"
	"trade-mentor/internal/trace"
	"trade-mentor/internal/vectorstore"
	"trade-mentor/internal/youtube"
)

// initializeSystem loads .env and initializes logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig reads the YAML config, falling back to defaults when the file is absent.
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if os.IsNotExist(err) {
		logger.Warn(ctx, "Config file not found, using defaults", "path", path)
		return store.Default(), nil
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

func initializeCompleter(ctx context.Context, cfg *store.Config, m *metrics.Metrics) interfaces.Completer {
	var completer interfaces.Completer

	switch cfg.LLM.Provider {
	case "OPENAI":
		completer = openai.NewClient(cfg, os.Getenv(cfg.LLM.TokenEnv))
	default:
		completer = noop.NewCompleter()
		logger.Warn(ctx, "No LLM provider configured - using Noop completer (empty reports)")
	}

	return llmobs.Wrap(completer, m)
}

func initializeEmbedder(ctx context.Context, cfg *store.Config) chromem.EmbeddingFunc {
	if cfg.Embedding.Provider == "OPENAI" {
		token := os.Getenv(cfg.Embedding.TokenEnv)
		if token == "" {
			logger.Warn(ctx, "Embedding token not set, indexing will fail", "env", cfg.Embedding.TokenEnv)
		}
		conf := goopenai.DefaultConfig(token)
		conf.BaseURL = cfg.Embedding.BaseURL
		return vectorstore.NewOpenAIEmbedder(goopenai.NewClientWithConfig(conf), cfg.Embedding.Model)
	}
	logger.Info(ctx, "Using local hashing embedder", "dimensions", cfg.Embedding.Dimensions)
	return vectorstore.NewHashEmbedder(cfg.Embedding.Dimensions)
}

func initializePrices(ctx context.Context, cfg *store.Config) interfaces.PriceSource {
	var source interfaces.PriceSource
	if cfg.Prices.Source == "KITE" {
		apiKey := os.Getenv(cfg.Prices.KiteAPIKeyEnv)
		if apiKey == "" {
			logger.Warn(ctx, "Kite API key not set, price lookups will fail", "env", cfg.Prices.KiteAPIKeyEnv)
		}
		source = prices.NewKiteSource(apiKey, os.Getenv(cfg.Prices.KiteAccessTokenEnv))
	} else {
		source = prices.NewYahooSource(cfg.Prices.YahooBaseURL, cfg.Prices.YahooSuffix, cfg.PricesTimeout())
	}
	if cfg.Prices.CacheMinutes < 0 {
		return source
	}
	return prices.NewCachedSource(source, time.Duration(cfg.Prices.CacheMinutes)*time.Minute)
}

func initializeAudit(ctx context.Context, cfg *store.Config) *auditlog.Log {
	if !cfg.Audit.Enabled {
		return nil
	}
	audit := auditlog.New(cfg.Audit.Dir)
	n, err := audit.CompressOlder(cfg.Audit.RetentionDays)
	if err != nil {
		logger.Warn(ctx, "Failed to compress old audit logs", "error", err)
	} else if n > 0 {
		logger.Info(ctx, "Compressed old audit logs", "files", n)
	}
	return audit
}

// buildServer wires every component into the HTTP server.
func buildServer(ctx context.Context, cfg *store.Config) *http.Server {
	m := metrics.New()

	pl := pipeline.New(pipeline.Params{
		Transcripts: youtube.NewTranscriptFetcher(
			cfg.Transcript.BaseURL,
			cfg.Transcript.Languages,
			cfg.TranscriptTimeout(),
			cfg.Transcript.RequestsPerMinute,
		),
		Stores: vectorstore.NewFactory(
			initializeEmbedder(ctx, cfg),
			cfg.Retrieval.ChunkSize,
			cfg.Retrieval.ChunkOverlap,
		),
		Generator: analysis.NewGenerator(initializeCompleter(ctx, cfg, m)),
		Query:     cfg.Retrieval.Query,
		TopK:      cfg.Retrieval.TopK,
		Metrics:   m,
	})

	handler := server.New(server.Params{
		Pipeline: pl,
		Prices:   initializePrices(ctx, cfg),
		Audit:    initializeAudit(ctx, cfg),
		Metrics:  m,
	})

	logger.Info(ctx, "Components initialized",
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"embedding_provider", cfg.Embedding.Provider,
		"price_source", cfg.Prices.Source,
		"audit", cfg.Audit.Enabled,
	)

	return &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
