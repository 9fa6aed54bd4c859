package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/blobstore"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/compiler"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/discovery"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/engine"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/http/api"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/http/swagger"
	"github.com/MiradoConsulting/RobocodeEngine/internal/adapters/notify"
	app "github.com/MiradoConsulting/RobocodeEngine/internal/app"
	"github.com/MiradoConsulting/RobocodeEngine/internal/config"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/logger"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	webhookTimeout            = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// We collect our own system metrics on a custom registry.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	metrics.Configure(metricsOptions(cfg)...)

	store, err := blobstore.Open(ctx, blobstore.Config{
		Backend:     cfg.BlobStore,
		SQLitePath:  cfg.BlobSQLitePath,
		PostgresDSN: cfg.BlobPostgresDSN,
	})
	if err != nil {
		loggerInstance.Error(ctx, "failed to open blob store", logger.String("backend", cfg.BlobStore), logger.Error(err))
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			loggerInstance.Warn(ctx, "closing blob store", logger.Error(err))
		}
	}()

	svc, err := buildService(cfg, store, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		return
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// buildService assembles the engine, compiler and discovery source selected
// by cfg around store.
func buildService(cfg *config.Config, store blobstore.Store, log logger.Logger) (*app.Service, error) {
	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithBlobStore(store),
		app.WithKeyPrefix(cfg.BlobPrefix),
		app.WithListPageSize(cfg.ListPageSize),
		app.WithPollInterval(cfg.PollInterval()),
		app.WithQueueSize(cfg.BattleQueueSize),
		app.WithWorkerCount(cfg.BattleWorkers),
		app.WithDiscoveryInterval(cfg.DiscoveryInterval()),
		app.WithDiscoveryCooldown(cfg.DiscoveryCooldown()),
	}

	driverOpts := []engine.Option{
		engine.WithRounds(cfg.EngineRounds),
		engine.WithBattlefield(cfg.BattlefieldWidth, cfg.BattlefieldHeight),
	}
	switch cfg.EngineKind {
	case config.EngineRobocode:
		rc := engine.NewRobocode(cfg.EngineHome, cfg.CompetitorsDir, engine.WithJavaBinary(cfg.JavaBinary))
		opts = append(opts, app.WithDriver(engine.NewDriver(rc, driverOpts...)))

		comp, err := compiler.New(cfg.CompetitorsDir,
			compiler.WithLibsDir(cfg.LibsDir),
			compiler.WithJavac(cfg.JavacBinary),
			compiler.WithJava(cfg.JavaBinary),
			compiler.WithEngineVersion(cfg.EngineVersion),
			compiler.WithTimeout(cfg.CompileTimeout()),
			compiler.WithNotifier(newNotifier(cfg, log)),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithCompiler(comp))
	default:
		opts = append(opts, app.WithDriver(engine.NewDriver(engine.NewSimulator(0), driverOpts...)))
	}

	if cfg.DiscoveryEnabled {
		opts = append(opts, app.WithSource(discovery.NewGitHub(cfg.GitHubOrg,
			discovery.WithAPIURL(cfg.GitHubAPIURL),
			discovery.WithRawURL(cfg.GitHubRawURL),
			discovery.WithBranch(cfg.GitHubBranch),
			discovery.WithToken(cfg.GitHubToken),
		)))
	}

	return app.New(opts...), nil
}

// newNotifier always logs; it also posts to the webhook when one is set.
func newNotifier(cfg *config.Config, log logger.Logger) notify.Notifier {
	notifiers := notify.Multi{notify.NewLogNotifier(log.Named("notify"))}
	if cfg.NotifyWebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.NotifyWebhookURL, &http.Client{Timeout: webhookTimeout}))
	}
	return notifiers
}

// newMux registers the docs and API routes.
// metricsOptions maps the metrics_* keys onto the metrics manager.
func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithInstance(cfg.MetricsInstance),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
	}
}

func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
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

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
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

// updateServiceMetrics copies service statistics into gauges.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if active, ok := stats["activeWorkers"].(int); ok {
		metrics.UpdateWorkerActiveCount(active)
	}
}
