package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jwwtc/fleet-intelligence/internal/alert"
	alertdomain "github.com/jwwtc/fleet-intelligence/internal/alert/domain"
	"github.com/jwwtc/fleet-intelligence/internal/analytics"
	analyticsdomain "github.com/jwwtc/fleet-intelligence/internal/analytics/domain"
	"github.com/jwwtc/fleet-intelligence/internal/config"
	"github.com/jwwtc/fleet-intelligence/internal/fleet"
	fleetdomain "github.com/jwwtc/fleet-intelligence/internal/fleet/domain"
	"github.com/jwwtc/fleet-intelligence/internal/observability"
	obsmiddleware "github.com/jwwtc/fleet-intelligence/internal/observability/logger"
	"github.com/jwwtc/fleet-intelligence/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fleet.Module,
	analytics.Module,
	alert.Module,
	scheduler.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	holder       *config.AnalyticsConfigHolder
	fleetSvc     fleetdomain.Service
	analyticsSvc analyticsdomain.Service
	alertSvc     alertdomain.Service

	scheduler *scheduler.Scheduler
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Holder       *config.AnalyticsConfigHolder
	FleetSvc     fleetdomain.Service
	AnalyticsSvc analyticsdomain.Service
	AlertSvc     alertdomain.Service

	Scheduler *scheduler.Scheduler
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		holder:       p.Holder,
		fleetSvc:     p.FleetSvc,
		analyticsSvc: p.AnalyticsSvc,
		alertSvc:     p.AlertSvc,
		scheduler:    p.Scheduler,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/dashboard", s.GetDashboard)
	api.GET("/analytics", s.GetAnalytics)
	api.GET("/fleet", s.ListFleet)
	api.GET("/metrics", s.ListMetricSeries)

	api.GET("/alerts", s.ListAlerts)
	api.POST("/alerts/:id/resolve", s.ResolveAlert)

	if s.cfg.Environment != "production" {
		api.POST("/detect", s.RunDetection)
	}
}
