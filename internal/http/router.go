package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/trujjo/neurotome/internal/http/handlers"
	httpMW "github.com/trujjo/neurotome/internal/http/middleware"
	"github.com/trujjo/neurotome/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	CORSOrigins []string
	MetricsPath string
	Tracing     bool
	ServiceName string

	HealthHandler  *httpH.HealthHandler
	FacetsHandler  *httpH.FacetsHandler
	GraphHandler   *httpH.GraphHandler
	SessionHandler *httpH.SessionHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing {
		name := cfg.ServiceName
		if name == "" {
			name = "neurotome"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics())
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	if cfg.MetricsPath != "" {
		r.GET(cfg.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	if cfg.FacetsHandler != nil {
		r.GET("/facets", cfg.FacetsHandler.ListFacets)
	}
	if cfg.GraphHandler != nil {
		r.POST("/graph", cfg.GraphHandler.Graph)
		r.GET("/search", cfg.GraphHandler.Search)
		r.GET("/nodes/random", cfg.GraphHandler.Random)
	}

	if h := cfg.SessionHandler; h != nil {
		r.POST("/sessions", h.Create)
		s := r.Group("/sessions/:id")
		{
			s.GET("", h.Get)
			s.DELETE("", h.Delete)
			s.GET("/graph", h.Graph)

			// Filters
			s.PUT("/filters", h.Apply)
			s.POST("/filters/toggle", h.Toggle)
			s.DELETE("/filters", h.Clear)
			s.POST("/refresh", h.Refresh)
			s.POST("/search", h.Search)
			s.POST("/sample", h.Sample)

			// Layout + interaction
			s.GET("/layout/stream", h.Stream)
			s.POST("/nodes/:nodeId/drag", h.Drag)
			s.POST("/nodes/:nodeId/unpin", h.Unpin)
			s.POST("/nodes/:nodeId/select", h.Select)
			s.DELETE("/selection", h.Deselect)
			s.POST("/nodes/:nodeId/explore", h.Explore)

			// Viewport
			s.PUT("/viewport", h.SetViewport)
			s.POST("/viewport/fit", h.Fit)
			s.POST("/viewport/zoom-to/:nodeId", h.ZoomToNode)
			s.POST("/viewport/pan", h.Pan)
			s.POST("/viewport/zoom", h.Zoom)

			s.GET("/snapshot.png", h.Snapshot)
		}
	}

	return r
}
