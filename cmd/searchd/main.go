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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ridelist/searchd/internal/analytics"
	"github.com/ridelist/searchd/internal/cache"
	"github.com/ridelist/searchd/internal/config"
	dbRedis "github.com/ridelist/searchd/internal/db/redis"
	"github.com/ridelist/searchd/internal/jobs"
	logpkg "github.com/ridelist/searchd/internal/logger"
	"github.com/ridelist/searchd/internal/metrics"
	activityrepo "github.com/ridelist/searchd/internal/repository/activity"
	listingrepo "github.com/ridelist/searchd/internal/repository/listing"
	chiTransport "github.com/ridelist/searchd/internal/transport/chi"
	recommenduc "github.com/ridelist/searchd/internal/usecase/recommend"
	searchuc "github.com/ridelist/searchd/internal/usecase/search"
	"github.com/ridelist/searchd/internal/version"
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

	logger.Info("Starting searchd API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
		zap.String("listing_db", cfg.ListingDB.Path),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache store not ready", zap.Error(err))
	}
	logger.Info("Connected to cache store")

	cacheMgr, err := cache.New(store, cfg.Cache.LocalSize,
		time.Duration(cfg.Cache.LocalTTLCapSec)*time.Second, logger)
	if err != nil {
		logger.Fatal("Failed to create cache manager", zap.Error(err))
	}

	listings, err := listingrepo.Open(cfg.ListingDB.Path)
	if err != nil {
		logger.Fatal("Failed to open listing store", zap.Error(err))
	}
	defer func() { _ = listings.Close() }()

	activities := activityrepo.New(listings.DB())

	// Use case services, wired here and nowhere else.
	recommendSvc := recommenduc.New(listings, activities, cacheMgr, logger)
	searchSvc := searchuc.New(listings, cacheMgr, analytics.NewLogEmitter(logger), logger).
		WithProfiles(recommendSvc)

	scheduler := jobs.NewScheduler(logger)
	if cfg.Jobs.TrendingSpec != "" {
		if err := scheduler.AddTrendingWarmer(cfg.Jobs.TrendingSpec, recommendSvc); err != nil {
			logger.Fatal("Failed to schedule trending warmer", zap.Error(err))
		}
	}
	scheduler.Start()

	server := chiTransport.NewServer(searchSvc, recommendSvc, store, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)
	r.Handle("/metrics", promhttp.Handler())

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
	scheduler.Stop()

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

// wideEventMiddleware emits a canonical log line per request, propagates
// X-Request-ID, and puts a request-scoped logger into the context for
// downstream handlers.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			reqLogger := logger
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
				reqLogger = logger.With(zap.String("request_id", requestID))
			}
			r = r.WithContext(logpkg.ContextWithLogger(r.Context(), reqLogger))

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http_request",
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
