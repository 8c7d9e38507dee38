package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/trujjo/neurotome/internal/config"
	httpX "github.com/trujjo/neurotome/internal/http"
	"github.com/trujjo/neurotome/internal/observability"
	"github.com/trujjo/neurotome/internal/platform/logger"
	"github.com/trujjo/neurotome/internal/realtime"
	"github.com/trujjo/neurotome/internal/services"
)

type App struct {
	Log      *logger.Logger
	Cfg      config.Config
	Clients  *Clients
	Explorer services.ExplorerService
	SSEHub   *realtime.SSEHub
	Server   *httpX.Server

	otelShutdown func(context.Context) error
}

// New connects every backend and builds the HTTP server. A Neo4j failure
// comes back as a *domain.ConnectionError.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	if cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	shutdown := observability.InitOTel(ctx, log, otelConfig(cfg))

	clients, err := wireClients(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	hub := realtime.NewSSEHub(log)
	svc, err := wireServices(cfg, log, clients, hub)
	if err != nil {
		clients.Close(ctx)
		return nil, fmt.Errorf("init services: %w", err)
	}
	rc := wireRouterConfig(cfg, log, svc, hub, shutdown != nil)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Explorer:     svc,
		SSEHub:       hub,
		Server:       httpX.NewServer(cfg.Server.Addr, rc),
		otelShutdown: shutdown,
	}, nil
}

func otelConfig(cfg config.Config) observability.OtelConfig {
	t := cfg.Telemetry
	return observability.OtelConfig{
		Enabled:     t.Enabled,
		ServiceName: t.ServiceName,
		Version:     t.Version,
		Environment: t.Environment,
		Database:    cfg.Neo4j.Database,
		Endpoint:    t.Endpoint,
		Headers:     t.Headers,
		Insecure:    t.Insecure,
		SampleRatio: t.SampleRatio,
	}
}

// Run warms the facet catalog, starts the idle-session janitor and serves
// until ctx ends.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	if _, err := a.Explorer.Facets(ctx, false); err != nil {
		a.Log.Warn("initial facet load degraded", "error", err)
	}
	go a.Explorer.RunJanitor(ctx)

	a.Log.Info("listening", "addr", a.Cfg.Server.Addr)
	return a.Server.Run(ctx, a.Cfg.Server.ShutdownTimeout)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	ctx := context.Background()
	if a.Explorer != nil {
		a.Explorer.Close()
	}
	a.Clients.Close(ctx)
	if a.otelShutdown != nil {
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
