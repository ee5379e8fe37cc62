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

	"github.com/hasti304/ai-pdf-rag/internal/config"
	openaiGateway "github.com/hasti304/ai-pdf-rag/internal/gateway/openai"
	logpkg "github.com/hasti304/ai-pdf-rag/internal/logger"
	"github.com/hasti304/ai-pdf-rag/internal/metrics"
	storeRedis "github.com/hasti304/ai-pdf-rag/internal/store/redis"
	chiTransport "github.com/hasti304/ai-pdf-rag/internal/transport/chi"
	analyzeruc "github.com/hasti304/ai-pdf-rag/internal/usecase/analyzer"
	cachemgruc "github.com/hasti304/ai-pdf-rag/internal/usecase/cachemgr"
	clustereruc "github.com/hasti304/ai-pdf-rag/internal/usecase/clusterer"
	"github.com/hasti304/ai-pdf-rag/internal/usecase/embcache"
	evaluatoruc "github.com/hasti304/ai-pdf-rag/internal/usecase/evaluator"
	healthuc "github.com/hasti304/ai-pdf-rag/internal/usecase/health"
	ingestuc "github.com/hasti304/ai-pdf-rag/internal/usecase/ingest"
	qauc "github.com/hasti304/ai-pdf-rag/internal/usecase/qa"
	retrieveruc "github.com/hasti304/ai-pdf-rag/internal/usecase/retriever"
	summarizeruc "github.com/hasti304/ai-pdf-rag/internal/usecase/summarizer"
	"github.com/hasti304/ai-pdf-rag/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragcore API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := storeRedis.NewStore(storeRedis.Config{
		Addrs:     cfg.Database.Addrs,
		Password:  cfg.Database.Password,
		KeyPrefix: cfg.Storage.KeyPrefix,
		VectorDim: cfg.Gateway.Dimensions,
	})
	if err != nil {
		logger.Fatal("Failed to create document store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Document store not ready", zap.Error(err))
	}
	if err := store.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure search index", zap.Error(err))
	}
	logger.Info("Connected to document store")

	// Register metrics explicitly (no init())
	metrics.RegisterCoreMetrics()

	gateway := openaiGateway.New(&openaiGateway.Config{
		APIKey:         cfg.Gateway.APIKey,
		BaseURL:        cfg.Gateway.BaseURL,
		ChatModel:      cfg.Gateway.ChatModel,
		EmbeddingModel: cfg.Gateway.EmbeddingModel,
		Dimensions:     cfg.Gateway.Dimensions,
		Logger:         logger,
	})

	cache := cachemgruc.New(cachemgruc.Config{
		BaseTTL:        time.Duration(cfg.Cache.BaseTTLHours) * time.Hour,
		MaxMemoryBytes: int64(cfg.Cache.MaxMemoryMB) * 1024 * 1024,
		SweepInterval:  time.Duration(cfg.Cache.SweepIntervalSec) * time.Second,
		Logger:         logger,
	})
	defer cache.Shutdown()

	// Embedder chain: gateway -> cached
	embedder := embcache.New(gateway, cache, logger)

	analyzerSvc := analyzeruc.New(gateway, logger)
	retrieverSvc := retrieveruc.New(embedder, store, logger)
	clustererSvc := clustereruc.New(store, gateway, store, clustereruc.Config{
		MinInterval:     time.Duration(cfg.Clustering.MinIntervalHours) * time.Hour,
		TopicBatchSize:  cfg.Clustering.TopicBatchSize,
		TopicBatchPause: time.Duration(cfg.Clustering.TopicBatchPauseMs) * time.Millisecond,
	}, logger)
	defer clustererSvc.Shutdown()

	evaluatorSvc := evaluatoruc.New(gateway, store, logger)
	summarizerSvc := summarizeruc.New(gateway, store, summarizeruc.Config{
		ChunkSize:        cfg.Summarizer.ChunkSize,
		ChunkOverlap:     cfg.Summarizer.ChunkOverlap,
		MinContentLength: cfg.Summarizer.MinContentLength,
		BatchSize:        cfg.Summarizer.BatchSize,
		BatchPause:       time.Duration(cfg.Summarizer.BatchPauseMs) * time.Millisecond,
	}, logger)

	qaSvc := qauc.New(
		analyzerSvc, retrieverSvc, gateway, evaluatorSvc, cache,
		cfg.Retrieval.DefaultTopK, logger,
	)
	ingestSvc := ingestuc.New(store, embedder, clustererSvc, cache, cfg.Gateway.Dimensions, logger)
	healthSvc := healthuc.New(store, gateway)

	server := chiTransport.NewServer(
		qaSvc, analyzerSvc, retrieverSvc, ingestSvc, clustererSvc,
		summarizerSvc, evaluatorSvc, cache, healthSvc,
		cfg.Retrieval.MaxTopK, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWith(r.Context(), reqLogger)

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
