package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/dental-scheduler/internal/app"
	"github.com/jwalitptl/dental-scheduler/internal/config"
	"github.com/jwalitptl/dental-scheduler/internal/handler/health"
	prometheushandler "github.com/jwalitptl/dental-scheduler/internal/handler/prometheus"
	"github.com/jwalitptl/dental-scheduler/pkg/logger"
	"github.com/jwalitptl/dental-scheduler/pkg/metrics"
)

func main() {
	var (
		configPath string
		store      string
		healthPort int
		once       bool
	)
	rootCmd := &cobra.Command{
		Use:   "dental-worker",
		Short: "Sends 24-hour appointment reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			l := app.NewLogger(cfg.Log)
			log.Logger = l.ZL
			return run(cfg, l, store, healthPort, once)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to a config file")
	rootCmd.Flags().StringVar(&store, "store", app.StorePostgres, "Storage backend: postgres or memory")
	rootCmd.Flags().IntVar(&healthPort, "health-port", 8081, "Port for health and metrics endpoints")
	rootCmd.Flags().BoolVar(&once, "once", false, "Run a single sweep and exit")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, l *logger.Logger, store string, healthPort int, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.Open(ctx, cfg, store, l)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer infra.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := app.New(cfg, infra.Repos, app.Options{
		Logger:  l,
		Metrics: metrics.New("dental", reg),
		Broker:  infra.Broker,
	})

	if once {
		res, err := a.Reminders.Sweep(ctx)
		if err != nil {
			return err
		}
		log.Info().
			Int("due", res.Due).
			Int("sent", res.Sent).
			Int("skipped", res.Skipped).
			Int("failed", res.Failed).
			Msg("reminder sweep finished")
		return nil
	}

	srv := healthServer(healthPort, infra.Checks, reg)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health check server failed")
			stop()
		}
	}()

	log.Info().
		Dur("interval", cfg.Reminder.Interval).
		Dur("lookahead", cfg.Reminder.Lookahead).
		Msg("starting reminder worker")
	a.Reminders.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("health server forced to shutdown: %w", err)
	}
	log.Info().Msg("worker stopped")
	return nil
}

func healthServer(port int, checks map[string]health.Pinger, reg *prometheus.Registry) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(checks).RegisterRoutes(engine)
	engine.GET("/metrics", prometheushandler.New(reg).Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
