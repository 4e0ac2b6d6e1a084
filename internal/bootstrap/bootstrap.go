package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vqhuy/docchat/internal/config"
	"github.com/vqhuy/docchat/internal/core/usecase"
	"github.com/vqhuy/docchat/internal/infrastructure/assistant"
	"github.com/vqhuy/docchat/internal/infrastructure/markup"
	"github.com/vqhuy/docchat/internal/infrastructure/pdfprobe"
	"github.com/vqhuy/docchat/internal/infrastructure/resilience"
	"github.com/vqhuy/docchat/internal/infrastructure/tokenstore"
	"github.com/vqhuy/docchat/internal/observability/logging"
	"github.com/vqhuy/docchat/internal/observability/metrics"
)

// App wires the client stack: the server client behind the resilience
// policy, the persistent session token slot, the local caches and the
// orchestrator that drives them.
type App struct {
	Config       config.Config
	Log          *slog.Logger
	Metrics      *metrics.ClientMetrics
	Client       *assistant.Client
	Orchestrator *usecase.Orchestrator

	metricsServer *http.Server
}

func New(cfg config.Config) *App {
	log := logging.New("docchat", cfg.LogLevel, cfg.LogFormat)
	clientMetrics := metrics.NewClientMetrics("docchat")

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.MaxAttempts = cfg.RetryMaxAttempts
	resilienceCfg.InitialBackoff = time.Duration(cfg.RetryInitialBackoffMS) * time.Millisecond
	resilienceCfg.BreakerEnabled = cfg.BreakerEnabled

	client := assistant.New(cfg.ServerURL, assistant.Options{
		Timeout:           time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		UploadTimeout:     time.Duration(cfg.UploadTimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.RequestBurst,
		Resilience:        resilienceCfg,
		Metrics:           clientMetrics,
		Logger:            log,
	})

	tokens := tokenstore.New(cfg.TokenPath, time.Duration(cfg.SessionTTLHours)*time.Hour, log)

	orch := usecase.NewOrchestrator(
		client,
		tokens,
		pdfprobe.New(),
		markup.NewParser().WithMetrics(clientMetrics),
		nil,
		nil,
		log,
	)

	return &App{
		Config:       cfg,
		Log:          log,
		Metrics:      clientMetrics,
		Client:       client,
		Orchestrator: orch,
	}
}

// StartMetrics exposes the Prometheus registry when a metrics address is
// configured. A long-running invocation opts in; one-shot commands skip it.
func (a *App) StartMetrics() {
	if a.Config.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	a.metricsServer = &http.Server{
		Addr:         a.Config.MetricsAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		a.Log.Info("metrics_listening", "addr", a.Config.MetricsAddr)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Error("metrics_server_failed", "error", err)
		}
	}()
}

func (a *App) Close() {
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.metricsServer.Shutdown(ctx)
	}
}
