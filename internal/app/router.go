package app

import (
	"github.com/trujjo/neurotome/internal/config"
	httpX "github.com/trujjo/neurotome/internal/http"
	httpH "github.com/trujjo/neurotome/internal/http/handlers"
	"github.com/trujjo/neurotome/internal/platform/logger"
	"github.com/trujjo/neurotome/internal/realtime"
	"github.com/trujjo/neurotome/internal/services"
)

func wireRouterConfig(cfg config.Config, log *logger.Logger, svc services.ExplorerService, hub *realtime.SSEHub, tracing bool) httpX.RouterConfig {
	rc := httpX.RouterConfig{
		Log:            log.Component("http"),
		CORSOrigins:    cfg.Server.CORSOrigins,
		Tracing:        tracing,
		ServiceName:    cfg.Telemetry.ServiceName,
		HealthHandler:  httpH.NewHealthHandler(svc),
		FacetsHandler:  httpH.NewFacetsHandler(svc),
		GraphHandler:   httpH.NewGraphHandler(svc),
		SessionHandler: httpH.NewSessionHandler(svc, hub),
	}
	if cfg.Metrics.Enabled {
		rc.MetricsPath = cfg.Metrics.Path
	}
	return rc
}
