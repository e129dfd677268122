package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appointmenthandler "github.com/jwalitptl/dental-scheduler/internal/handler/appointment"
	availabilityhandler "github.com/jwalitptl/dental-scheduler/internal/handler/availability"
	"github.com/jwalitptl/dental-scheduler/internal/handler/health"
	notificationhandler "github.com/jwalitptl/dental-scheduler/internal/handler/notification"
	prometheushandler "github.com/jwalitptl/dental-scheduler/internal/handler/prometheus"
	treatmenthandler "github.com/jwalitptl/dental-scheduler/internal/handler/treatment"
	"github.com/jwalitptl/dental-scheduler/internal/middleware"
	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/pkg/logger"
	"github.com/jwalitptl/dental-scheduler/pkg/metrics"
)

type RouterConfig struct {
	Mode           string
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSOrigins    []string
	// MetricsPath is left unmounted when empty
	MetricsPath string
}

type Handlers struct {
	Auth         *middleware.AuthMiddleware
	Appointment  *appointmenthandler.Handler
	Availability *availabilityhandler.Handler
	Notification *notificationhandler.Handler
	Treatment    *treatmenthandler.Handler
	Health       *health.Handler
	Prometheus   *prometheushandler.Handler
}

type Router struct {
	engine *gin.Engine
	h      Handlers
	config RouterConfig
}

func NewRouter(h Handlers, config RouterConfig, log *logger.Logger, m *metrics.Metrics) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.ErrorLogger(log),
		middleware.Metrics(m),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(middleware.DefaultCORSConfig(config.CORSOrigins)),
	)

	if config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	return &Router{engine: engine, h: h, config: config}
}

// Setup mounts every route and returns the engine.
func (r *Router) Setup() *gin.Engine {
	if r.h.Health != nil {
		r.h.Health.RegisterRoutes(r.engine)
	}
	if r.h.Prometheus != nil && r.config.MetricsPath != "" {
		r.engine.GET(r.config.MetricsPath, r.h.Prometheus.Handler())
	}

	api := r.engine.Group("/api/v1")
	api.Use(
		middleware.Timeout(r.config.RequestTimeout),
		middleware.SizeLimit(r.config.MaxBodyBytes),
	)

	authed := api.Group("")
	authed.Use(r.h.Auth.Authenticate())

	staff := authed.Group("")
	staff.Use(middleware.RequireRole(model.RoleAdmin, model.RoleProvider))

	admin := authed.Group("")
	admin.Use(middleware.RequireRole(model.RoleAdmin))

	r.h.Appointment.RegisterRoutes(authed, staff)
	r.h.Availability.RegisterRoutes(authed, staff)
	r.h.Notification.RegisterRoutes(authed)
	r.h.Treatment.RegisterRoutes(api, admin)

	return r.engine
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
