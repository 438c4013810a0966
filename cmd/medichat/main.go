package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/gekina/medichat/internal/auth"
	"github.com/gekina/medichat/internal/config"
	"github.com/gekina/medichat/internal/corpus"
	"github.com/gekina/medichat/internal/db"
	dbRedis "github.com/gekina/medichat/internal/db/redis"
	"github.com/gekina/medichat/internal/domain"
	logpkg "github.com/gekina/medichat/internal/logger"
	"github.com/gekina/medichat/internal/metrics"
	accountrepo "github.com/gekina/medichat/internal/repository/account"
	"github.com/gekina/medichat/internal/repository/embcache"
	chiTransport "github.com/gekina/medichat/internal/transport/chi"
	openaiTransport "github.com/gekina/medichat/internal/transport/openai"
	"github.com/gekina/medichat/internal/transport/rerank"
	accountuc "github.com/gekina/medichat/internal/usecase/account"
	chatuc "github.com/gekina/medichat/internal/usecase/chat"
	"github.com/gekina/medichat/internal/version"
)

// seedAdminPassword is the default credential for the reserved admin account,
// set only when the account does not exist yet.
const (
	seedAdminPassword = "admin123"
	seedAdminEmail    = "admin@medichat.com"
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

	logger.Info("Starting medichat API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_path", cfg.Database.Path),
		zap.String("dataset", cfg.Corpus.DatasetID),
	)

	// Account store
	accounts, err := accountrepo.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to open account database", zap.Error(err))
	}
	defer accounts.Close()

	ctx := context.Background()

	adminHash, err := accountuc.HashPassword(seedAdminPassword)
	if err != nil {
		logger.Fatal("Failed to hash admin seed password", zap.Error(err))
	}
	if err := accounts.EnsureAdmin(ctx, adminHash, seedAdminEmail); err != nil {
		logger.Fatal("Failed to seed admin account", zap.Error(err))
	}

	// Optional Redis embedding cache
	var cacheStore db.Store
	if len(cfg.Cache.Addrs) > 0 {
		cacheStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cacheStore.Close()

		readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := cacheStore.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache")
	}

	metrics.RegisterPipelineMetrics()

	// Corpus artifacts. Load failure degrades chat to the fixed offline
	// response instead of crashing the process; there is no reload path.
	var corpusStore chatuc.Corpus
	store, err := corpus.Load(ctx, cfg.Corpus, logger)
	if err != nil {
		logger.Error("Failed to load corpus, chat will run offline", zap.Error(err))
	} else {
		corpusStore = store
	}

	queryEmbedder := buildQueryEmbedder(cfg, cacheStore, logger)

	rerankClient := rerank.NewClient(&rerank.Config{
		BaseURL: cfg.Rerank.BaseURL,
		APIKey:  cfg.Rerank.APIKey,
		Model:   cfg.Rerank.Model,
		Logger:  logger,
	})

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Logger:      logger,
	})

	// Use case services
	tokens := auth.NewTokenIssuer(cfg.Auth.SecretKey, time.Duration(cfg.Auth.TokenTTLDays)*24*time.Hour)
	accountSvc := accountuc.New(accounts, tokens)
	chatSvc := chatuc.New(corpusStore, queryEmbedder, rerankClient, generator, logger).
		WithTuning(cfg.Corpus.SearchK, cfg.Rerank.TopN, *cfg.Rerank.ScoreFloor)

	server := chiTransport.NewServer(
		accountSvc, accounts, chatSvc, tokens,
		corpusStore != nil, cfg.Static.BuildDir, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// buildQueryEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction.
// The instruction prefix sits outermost so the cache key includes it.
func buildQueryEmbedder(cfg config.Config, cacheStore db.Store, logger *zap.Logger) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
		Logger:  logger,
	})

	var embedder domain.Embedder = base
	if cacheStore != nil {
		embedder = embcache.New(base, cacheStore, metrics.EmbeddingCacheTotal, logger)
	}

	if cfg.Embedding.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}
	return embedder
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
						"detail": "internal error",
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

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
