// Package app assembles services, handlers and the reminder sweep from one
// set of repositories. The API server, the worker and end-to-end tests share it.
package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/dental-scheduler/internal/config"
	"github.com/jwalitptl/dental-scheduler/internal/email"
	appointmenthandler "github.com/jwalitptl/dental-scheduler/internal/handler/appointment"
	availabilityhandler "github.com/jwalitptl/dental-scheduler/internal/handler/availability"
	"github.com/jwalitptl/dental-scheduler/internal/handler/health"
	notificationhandler "github.com/jwalitptl/dental-scheduler/internal/handler/notification"
	prometheushandler "github.com/jwalitptl/dental-scheduler/internal/handler/prometheus"
	treatmenthandler "github.com/jwalitptl/dental-scheduler/internal/handler/treatment"
	"github.com/jwalitptl/dental-scheduler/internal/middleware"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
	"github.com/jwalitptl/dental-scheduler/internal/router"
	"github.com/jwalitptl/dental-scheduler/internal/service/appointment"
	"github.com/jwalitptl/dental-scheduler/internal/service/availability"
	"github.com/jwalitptl/dental-scheduler/internal/service/notification"
	"github.com/jwalitptl/dental-scheduler/internal/service/treatment"
	"github.com/jwalitptl/dental-scheduler/internal/service/user"
	"github.com/jwalitptl/dental-scheduler/internal/worker"
	"github.com/jwalitptl/dental-scheduler/pkg/auth"
	"github.com/jwalitptl/dental-scheduler/pkg/logger"
	"github.com/jwalitptl/dental-scheduler/pkg/messaging"
	"github.com/jwalitptl/dental-scheduler/pkg/metrics"
	"github.com/jwalitptl/dental-scheduler/pkg/validator"
)

type Options struct {
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	// Email defaults to the sender selected by config.SMTP
	Email  email.Service
	Broker messaging.Broker
	Now    func() time.Time
}

type App struct {
	Config        *config.Config
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
	Validator     validator.Validator
	JWT           auth.JWTService
	Users         *user.Service
	Notifications *notification.Service
	Availability  *availability.Service
	Appointments  *appointment.Service
	Treatments    *treatment.Service
	Reminders     *worker.ReminderSweep
}

func New(cfg *config.Config, repos repository.Repositories, opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Email == nil {
		opts.Email = email.NewService(cfg.SMTP, opts.Logger.ZL, opts.Metrics)
	}

	users := user.NewService(repos.Users, cfg.Cache.UserTTL, cfg.Cache.CleanupInterval)
	messages := notification.NewMessages(cfg.Reminder.Location(), cfg.SMTP.FromName)
	notifications := notification.NewService(
		repos.Notifications, users, opts.Email, opts.Broker, messages, opts.Logger,
		notification.Options{Channel: cfg.Redis.Channel, Metrics: opts.Metrics, Now: opts.Now},
	)
	v := validator.New()

	return &App{
		Config:        cfg,
		Logger:        opts.Logger,
		Metrics:       opts.Metrics,
		Validator:     v,
		JWT:           auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour),
		Users:         users,
		Notifications: notifications,
		Availability:  availability.NewService(repos.Availability, repos.Appointments, repos.UnitOfWork, opts.Metrics, opts.Now),
		Appointments: appointment.NewService(
			repos.Appointments, repos.UnitOfWork, users, notifications, opts.Logger, opts.Metrics, opts.Now,
		),
		Treatments: treatment.NewService(repos.Treatments, v),
		Reminders: worker.NewReminderSweep(
			repos.Appointments, repos.UnitOfWork, users, notifications, opts.Logger,
			worker.ReminderOptions{
				Interval:  cfg.Reminder.Interval,
				Lookahead: cfg.Reminder.Lookahead,
				Metrics:   opts.Metrics,
				Now:       opts.Now,
			},
		),
	}
}

// Router builds the HTTP engine. gatherer may be nil to skip /metrics.
func (a *App) Router(checks map[string]health.Pinger, gatherer prometheus.Gatherer) *gin.Engine {
	handlers := router.Handlers{
		Auth:         middleware.NewAuthMiddleware(a.JWT),
		Appointment:  appointmenthandler.NewHandler(a.Appointments, a.Validator),
		Availability: availabilityhandler.NewHandler(a.Availability, a.Validator),
		Notification: notificationhandler.NewHandler(a.Notifications),
		Treatment:    treatmenthandler.NewHandler(a.Treatments, a.Validator),
		Health:       health.NewHandler(checks),
	}
	metricsPath := ""
	if gatherer != nil && a.Config.Metrics.Enabled {
		handlers.Prometheus = prometheushandler.New(gatherer)
		metricsPath = a.Config.Metrics.Path
	}

	srv := a.Config.Server
	var limit rate.Limit
	if srv.RateLimit.Enabled {
		limit = rate.Limit(srv.RateLimit.RequestsPerSecond)
	}

	return router.NewRouter(handlers, router.RouterConfig{
		Mode:           srv.Mode,
		RateLimit:      limit,
		RateBurst:      srv.RateLimit.Burst,
		RequestTimeout: srv.RequestTimeout,
		MaxBodyBytes:   srv.MaxBodyBytes,
		CORSOrigins:    srv.CORSOrigins,
		MetricsPath:    metricsPath,
	}, a.Logger, a.Metrics).Setup()
}
