package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/orbit-recommendation/internal/adapters/cache"
	"github.com/okian/orbit-recommendation/internal/adapters/http/api"
	"github.com/okian/orbit-recommendation/internal/adapters/http/swagger"
	"github.com/okian/orbit-recommendation/internal/adapters/upstream"
	app "github.com/okian/orbit-recommendation/internal/app"
	"github.com/okian/orbit-recommendation/internal/config"
	"github.com/okian/orbit-recommendation/internal/domain/aggregate"
	"github.com/okian/orbit-recommendation/pkg/logger"
	"github.com/okian/orbit-recommendation/pkg/metrics"
	"github.com/okian/orbit-recommendation/pkg/tracing"
)

const serviceName = "orbit-recommendation"

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := run(); err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	shutdownTracing, err := tracing.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		log.Warn(ctx, "tracing disabled", logger.String("endpoint", cfg.OTelEndpoint), logger.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn(ctx, "tracing shutdown failed", logger.Error(err))
		}
	}()

	svc, err := newService(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newStore selects the cache backend named in cfg.
func newStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		return cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return cache.NewMemoryStore(cache.WithMaxEntries(cfg.CacheMaxEntries)), nil
	}
}

// newService wires upstream clients, the aggregator and the cache into the
// recommendation service.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	clientOpts := []upstream.Option{
		upstream.WithTimeout(cfg.UpstreamTimeout()),
		upstream.WithLogger(log.Named("upstream")),
		upstream.WithBreaker(upstream.BreakerConfig{
			MaxRequests:  uint32(max(cfg.BreakerMaxRequests, 0)),
			OpenTimeout:  cfg.BreakerTimeout(),
			FailureRatio: cfg.BreakerFailureRatio,
			MinRequests:  uint32(max(cfg.BreakerMinRequests, 0)),
		}),
	}
	analytics := upstream.NewAnalyticsClient(cfg.AnalyticsBaseURL, clientOpts...)
	progress := upstream.NewProgressClient(cfg.ProgressBaseURL, clientOpts...)

	agg := aggregate.New(analytics, progress, aggregate.WithLogger(log.Named("aggregate")))

	return app.New(agg, store,
		app.WithTTL(cfg.CacheTTL()),
		app.WithCacheBackend(cfg.CacheBackend),
		app.WithLogger(log.Named("service")),
	), nil
}

// newHandler registers every route on a fresh mux.
func newHandler(ctx context.Context, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return api.RequestIDMiddleware(mux)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
