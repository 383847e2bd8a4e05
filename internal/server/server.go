package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	bookingdomain "github.com/smallbiznis/bookingsync/internal/booking/domain"
	bookingsyncdomain "github.com/smallbiznis/bookingsync/internal/bookingsync/domain"
	"github.com/smallbiznis/bookingsync/internal/config"
	"github.com/smallbiznis/bookingsync/internal/observability"
	obsmiddleware "github.com/smallbiznis/bookingsync/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/bookingsync/internal/observability/metrics"
	obstracing "github.com/smallbiznis/bookingsync/internal/observability/tracing"
	"github.com/smallbiznis/bookingsync/internal/ratelimit"
	scheduledomain "github.com/smallbiznis/bookingsync/internal/schedule/domain"
	"github.com/smallbiznis/bookingsync/internal/stripe"
	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http.server.failed", zap.Error(err))
				}
			}()
			log.Info("http.server.started", zap.String("addr", cfg.HTTPAddr))
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
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	syncSvc    bookingsyncdomain.Service
	scheduleSv scheduledomain.Service
	source     subscriptiondomain.Source
	bookings   bookingdomain.Repository
	verifier   *stripe.WebhookVerifier
	tuning     *config.SyncConfigHolder
	obsMetrics *obsmetrics.Metrics
	limiter    *ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	SyncSvc    bookingsyncdomain.Service
	ScheduleSv scheduledomain.Service
	Source     subscriptiondomain.Source
	Bookings   bookingdomain.Repository
	Verifier   *stripe.WebhookVerifier
	SyncConfig *config.SyncConfigHolder
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
	Limiter    *ratelimit.Limiter  `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		log:        p.Log.Named("http.server"),
		syncSvc:    p.SyncSvc,
		scheduleSv: p.ScheduleSv,
		source:     p.Source,
		bookings:   p.Bookings,
		verifier:   p.Verifier,
		tuning:     p.SyncConfig,
		obsMetrics: p.ObsMetrics,
		limiter:    p.Limiter,
	}

	svc.registerWebhookRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	hooks := s.engine.Group("/webhooks")
	hooks.POST("/stripe", s.HandleStripeWebhook)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AdminTokenRequired())

	admin.POST("/sync", s.SyncRateLimit("full"), s.TriggerSync)
	admin.GET("/subscriptions/incomplete", s.ListIncompleteSubscriptions)
	admin.POST("/subscriptions/:id/sync", s.SyncRateLimit("subscription"), s.SyncSubscription)
	admin.PUT("/subscriptions/:id/schedule", s.SaveSubscriptionSchedule)
	admin.GET("/subscriptions/:id/bookings", s.ListSubscriptionBookings)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
