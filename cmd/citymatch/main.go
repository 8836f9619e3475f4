package main

import (
	"context"
	"encoding/json"
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

	"github.com/kailas-cloud/citymatch/internal/config"
	"github.com/kailas-cloud/citymatch/internal/db"
	dbRedis "github.com/kailas-cloud/citymatch/internal/db/redis"
	"github.com/kailas-cloud/citymatch/internal/domain"
	"github.com/kailas-cloud/citymatch/internal/domain/vocab"
	logpkg "github.com/kailas-cloud/citymatch/internal/logger"
	"github.com/kailas-cloud/citymatch/internal/metrics"
	"github.com/kailas-cloud/citymatch/internal/repository/dislike"
	"github.com/kailas-cloud/citymatch/internal/repository/embcache"
	"github.com/kailas-cloud/citymatch/internal/repository/seed"
	chiTransport "github.com/kailas-cloud/citymatch/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/citymatch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/citymatch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/citymatch/internal/usecase/health"
	"github.com/kailas-cloud/citymatch/internal/usecase/profile"
	rankuc "github.com/kailas-cloud/citymatch/internal/usecase/rank"
	"github.com/kailas-cloud/citymatch/internal/usecase/vectorize"
	"github.com/kailas-cloud/citymatch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting citymatch API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("encoding", cfg.Ranking.Encoding),
		zap.String("seed", cfg.Seed.Path),
	)

	ctx := context.Background()

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRankingMetrics()

	// Optional key-value database: dislike hashes and the embedding cache.
	var store db.Store
	if cfg.Database.Enabled() {
		// Valkey speaks the same protocol for the commands used here.
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer s.Close()

		if err := s.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		store = s
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
	}

	curated := vocab.Curated()
	raw := vocab.Raw()
	if cfg.Vocabulary.RawPath != "" {
		if raw, err = vocab.LoadRawFile(cfg.Vocabulary.RawPath); err != nil {
			logger.Fatal("Failed to load raw vocabulary", zap.Error(err))
		}
	}

	// Tag encoder for the index, plus a text encoder when the space is dense.
	var (
		tagEncoder  rankuc.Encoder
		textEncoder profile.TextEncoder
		embChecker  healthuc.Checker
	)
	if cfg.Ranking.Encoding == string(vectorize.EncodingEmbedding) {
		docEmbedder := buildEmbedder(cfg.Embedding, "", store, logger)
		queryEmbedder := buildEmbedder(cfg.Embedding, cfg.Embedding.QueryInstruction, store, logger)
		tagEncoder = vectorize.NewEmbedding(docEmbedder, cfg.Embedding.Dimensions)
		textEncoder = vectorize.NewEmbedding(queryEmbedder, cfg.Embedding.Dimensions)
		embChecker = embeddingCheck(docEmbedder)
		logger.Info("Embedders created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	} else {
		tagEncoder, err = vectorize.New(vectorize.Encoding(cfg.Ranking.Encoding), curated, raw,
			vectorize.WithUnmappedObserver(metrics.UnmappedTagObserver))
		if err != nil {
			logger.Fatal("Failed to create vectorizer", zap.Error(err))
		}
	}

	items, err := seed.Load(ctx, seed.Source{Format: seed.Format(cfg.Seed.Format), Path: cfg.Seed.Path})
	if err != nil {
		logger.Fatal("Failed to load seed", zap.Error(err))
	}

	start := time.Now()
	index, err := rankuc.BuildIndex(ctx, items, tagEncoder, cfg.Ranking.Workers)
	if err != nil {
		logger.Fatal("Failed to build index", zap.Error(err))
	}
	metrics.CatalogItems.Set(float64(index.Len()))
	logger.Info("Index built",
		zap.Int("items", index.Len()),
		zap.Int("cities", len(index.Cities())),
		zap.Int("dimensions", index.Dimensions()),
		zap.Duration("took", time.Since(start)),
	)

	// Dislike store
	var (
		dislikes    chiTransport.DislikeStore
		healthOpts  []healthuc.Option
		prefsCloser func() error
	)
	switch cfg.Preferences.Driver {
	case config.DriverRedis:
		dislikes = dislike.NewHashRepo(store)
	case config.DriverSQLite:
		repo, err := dislike.OpenSQLite(ctx, cfg.Preferences.SQLitePath)
		if err != nil {
			logger.Fatal("Failed to open dislike database", zap.Error(err))
		}
		dislikes = repo
		prefsCloser = repo.Close
		healthOpts = append(healthOpts, healthuc.WithPreferences(repo))
	}
	if prefsCloser != nil {
		defer func() { _ = prefsCloser() }()
	}

	// Pass a nil interface, not a typed nil, when no store is configured.
	var dislikeReader rankuc.DislikeReader
	if dislikes != nil {
		dislikeReader = dislikes
	}

	rankSvc := rankuc.New(index, profile.New(tagEncoder, textEncoder), dislikeReader,
		rankConfig(cfg.Ranking, raw))

	// Health service
	if store != nil {
		healthOpts = append(healthOpts, healthuc.WithDatabase(store))
	}
	if embChecker != nil {
		healthOpts = append(healthOpts, healthuc.WithEmbedding(embChecker))
	}
	healthSvc := healthuc.New(index, healthOpts...)

	// Create chi server
	server := chiTransport.NewServer(rankSvc, healthSvc, dislikes, []*vocab.Vocabulary{curated, raw}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware("/metrics"))
	server.Routes(r)

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

// rankConfig maps the ranking section onto the pipeline parameters. Diversity is
// measured over raw categories.
func rankConfig(rc config.RankingConfig, raw *vocab.Vocabulary) rankuc.Config {
	cfg := rankuc.DefaultConfig(raw)
	cfg.Weights = rankuc.Weights{Alpha: rc.Alpha, Beta: rc.Beta}
	cfg.Aggregate.TopN = rc.TopN
	cfg.Aggregate.MaxWeight = rc.MaxWeight
	cfg.Aggregate.MeanWeight = rc.MeanWeight
	cfg.Aggregate.DiversityWeight = rc.DiversityWeight
	cfg.Aggregate.MinMaxScore = rc.MinCityScore
	if rc.Lambda != nil {
		cfg.Lambda = *rc.Lambda
	}
	cfg.CandidatePool = rc.CandidatePool
	cfg.DefaultLimit = rc.DefaultLimit
	cfg.MaxLimit = rc.MaxLimit
	cfg.Workers = rc.Workers
	return cfg
}

// embeddingCheck reaches the provider's own health check through the decorators.
func embeddingCheck(embedder domain.Embedder) healthuc.CheckFunc {
	return func(ctx context.Context) error {
		if err := domain.CheckHealth(ctx, embedder); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
		return nil
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	ec config.EmbeddingConfig,
	instruction string,
	store db.Store,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider,
		MaxRetries: ec.MaxRetries,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, embcache.Options{
			Model: ec.Model,
			TTL:   time.Duration(ec.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (dimension check + metrics)
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, ec.Dimensions, logger)

	// Instruction prefix (outermost, so the cache key includes it)
	return domain.NewInstructionEmbedder(embedder, instruction)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithEvent(logpkg.ContextWithLogger(r.Context(), reqLogger))

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			reqLogger.Info("http_request", append(fields, logpkg.EventFields(ctx)...)...)
		})
	}
}
