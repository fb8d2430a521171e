package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/evalmatrix/internal/adapters/analyzer"
	"github.com/okian/evalmatrix/internal/adapters/http/api"
	"github.com/okian/evalmatrix/internal/adapters/http/site"
	"github.com/okian/evalmatrix/internal/adapters/http/swagger"
	"github.com/okian/evalmatrix/internal/adapters/llm/gemini"
	service "github.com/okian/evalmatrix/internal/app"
	"github.com/okian/evalmatrix/internal/config"
	"github.com/okian/evalmatrix/internal/domain/catalog"
	"github.com/okian/evalmatrix/pkg/logger"
	"github.com/okian/evalmatrix/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
	// Analysis requests on the proxy can run for the whole model timeout.
	writeTimeoutSlack = 10 * time.Second
)

func main() {
	// Our metrics live on a custom registry; keep the default one quiet.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(config.DotEnvFiles...); err != nil {
		os.Stderr.WriteString("failed to read .env: " + err.Error() + "\n")
		return
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := buildService(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build service", logger.Error(err))
		return
	}
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.AnalysisTimeout() + writeTimeoutSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("version", cfg.Version),
			logger.Bool("analysis", cfg.AnalysisURL != "" || cfg.GeminiAPIKey != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// buildService wires the catalog and the analysis backends chosen by cfg.
// A remote analysis_url takes precedence over calling Gemini in-process.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		loaded, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		cat = loaded
		log.Info(ctx, "catalog loaded", logger.String("file", cfg.CatalogFile), logger.Int("criteria", cat.Len()))
	}

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithCatalog(cat),
		service.WithMaxSessions(cfg.MaxSessions),
		service.WithWorkerCount(cfg.AnalysisWorkers),
		service.WithQueueSize(cfg.AnalysisQueueSize),
		service.WithVersion(cfg.Version),
		service.WithProxyModel(cfg.GeminiModel),
		service.WithProxyTimeout(cfg.AnalysisTimeout()),
	}

	var gen *gemini.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel,
			gemini.WithSystemPrompt(cfg.SystemPrompt),
			gemini.WithTimeout(cfg.AnalysisTimeout()),
			gemini.WithLogger(log.Named("gemini")),
		)
		if err != nil {
			return nil, err
		}
		gen = g
		opts = append(opts, service.WithSummarizer(gen))
	}

	switch {
	case cfg.AnalysisURL != "":
		opts = append(opts, service.WithAnalyzer(analyzer.New(cfg.AnalysisURL,
			analyzer.WithTimeout(cfg.AnalysisTimeout()),
			analyzer.WithRetries(cfg.AnalysisRetries),
			analyzer.WithLogger(log.Named("analyzer")),
		)))
	case gen != nil:
		opts = append(opts, service.WithAnalyzer(gen))
	default:
		log.Warn(ctx, "no analysis backend configured; set analysis_url or GEMINI_API_KEY")
	}

	return service.New(opts...), nil
}

// newMux registers every HTTP surface on one mux.
func newMux(ctx context.Context, svc *service.Service, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(svc, api.WithCORSOrigin(cfg.CORSOrigin)).Register(ctx, mux)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater periodically samples runtime gauges.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.RefreshSystemMetrics()
		}
	}
}
