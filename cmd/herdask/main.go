package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/herdask/internal/config"
	dbRedis "github.com/kailas-cloud/herdask/internal/db/redis"
	"github.com/kailas-cloud/herdask/internal/domain"
	logpkg "github.com/kailas-cloud/herdask/internal/logger"
	"github.com/kailas-cloud/herdask/internal/metrics"
	admissionrepo "github.com/kailas-cloud/herdask/internal/repository/admission"
	"github.com/kailas-cloud/herdask/internal/repository/chatlog"
	"github.com/kailas-cloud/herdask/internal/repository/embcache"
	listingrepo "github.com/kailas-cloud/herdask/internal/repository/listing"
	"github.com/kailas-cloud/herdask/internal/repository/pglisting"
	"github.com/kailas-cloud/herdask/internal/repository/resultcache"
	chiTransport "github.com/kailas-cloud/herdask/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/herdask/internal/transport/openai"
	"github.com/kailas-cloud/herdask/internal/usecase/admission"
	assistantuc "github.com/kailas-cloud/herdask/internal/usecase/assistant"
	embeddinguc "github.com/kailas-cloud/herdask/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/herdask/internal/usecase/health"
	rankinguc "github.com/kailas-cloud/herdask/internal/usecase/ranking"
	"github.com/kailas-cloud/herdask/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting herdask API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("listings_backend", cfg.Listings.Backend),
	)

	// Redis and Valkey speak the same protocol; one client serves both drivers.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.Register()

	keyPrefix := cfg.Storage.KeyPrefix

	// Listing source
	var listings rankinguc.Repository
	var listingsPinger healthuc.Pinger
	switch cfg.Listings.Backend {
	case "postgres":
		pg, err := pglisting.New(ctx, cfg.Listings.PostgresDSN, cfg.Embedding.Dimensions)
		if err != nil {
			logger.Fatal("Failed to open postgres listing store", zap.Error(err))
		}
		defer pg.Close()
		listings, listingsPinger = pg, pg
	default:
		listings = listingrepo.New(store, keyPrefix)
	}

	ranker := rankinguc.New(listings, cfg.Listings.Collections, logger).
		WithDimensions(cfg.Embedding.Dimensions).
		WithMinSimilarity(cfg.Pipeline.MinSimilarity)

	// Providers
	embedder := buildEmbedder(cfg.Embedding, store, keyPrefix, logger)
	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		Config: openaiTransport.Config{
			APIKey:   cfg.Generation.APIKey,
			BaseURL:  cfg.Generation.BaseURL,
			Model:    cfg.Generation.Model,
			Provider: cfg.Generation.Provider,
			Logger:   logger,
		},
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
	})
	logger.Info("Providers created",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("generation_model", cfg.Generation.Model),
	)

	// Answer cache
	var cache assistantuc.Cache
	switch cfg.Pipeline.CacheBackend {
	case "redis":
		cache = resultcache.NewRedis(store, keyPrefix)
	default:
		mem, err := resultcache.NewMemory(cfg.Pipeline.CacheMaxEntries)
		if err != nil {
			logger.Fatal("Failed to create answer cache", zap.Error(err))
		}
		cache = mem
	}

	// Admission lock
	var lock assistantuc.Locker
	switch cfg.Pipeline.LockBackend {
	case "redis":
		lock = admissionrepo.New(store, keyPrefix, time.Duration(cfg.Pipeline.LockLeaseSec)*time.Second)
	default:
		lock = admission.NewLock()
	}

	assistantSvc := assistantuc.New(lock, cache, embedder, ranker, generator, chatlog.New(store, keyPrefix),
		assistantuc.Config{
			TopK:              cfg.Pipeline.TopK,
			RecommendTopK:     cfg.Pipeline.RecommendTopK,
			CacheTTL:          time.Duration(cfg.Pipeline.CacheTTLSec) * time.Second,
			GenerationTimeout: time.Duration(cfg.Generation.TimeoutSec) * time.Second,
			Locations:         cfg.Pipeline.Locations,
			SystemPrompt:      cfg.Generation.SystemPrompt,
			HistoryLimit:      cfg.Pipeline.HistoryLimit,
		})

	healthSvc := healthuc.New(store, newProviderHealthChecker(embedder), generator)
	if listingsPinger != nil {
		healthSvc = healthSvc.WithListings(listingsPinger)
	}

	// Create chi server
	server := chiTransport.NewServer(assistantSvc, healthSvc, cfg.Auth.CallerHeader, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// providerHealthChecker wraps domain.Embedder to implement health.ProviderChecker.
type providerHealthChecker struct {
	embedder domain.Embedder
}

func newProviderHealthChecker(embedder domain.Embedder) *providerHealthChecker {
	return &providerHealthChecker{embedder: embedder}
}

func (h *providerHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	embCfg config.EmbeddingConfig,
	store *dbRedis.Store,
	keyPrefix string,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Provider:   embCfg.Provider,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = embcache.New(
		base, store, keyPrefix, embCfg.Model,
		time.Duration(embCfg.CacheTTLSec)*time.Second,
		metrics.EmbeddingCacheTotal, logger,
	)

	// Instrumented (timeout, vector check, error logging)
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, embCfg.Provider, embCfg.Model,
		time.Duration(embCfg.TimeoutSec)*time.Second, logger,
	).WithDimensions(embCfg.Dimensions)

	// Instruction prefix (outermost, so the cache key includes the instruction)
	if embCfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, embCfg.QueryInstruction)
	}

	return embedder
}
