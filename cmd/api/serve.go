package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/scheduling-api/internal/app"
	appointmenthandler "github.com/jwalitptl/scheduling-api/internal/handler/appointment"
	availabilityhandler "github.com/jwalitptl/scheduling-api/internal/handler/availability"
	"github.com/jwalitptl/scheduling-api/internal/handler/health"
	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/router"
	"github.com/jwalitptl/scheduling-api/internal/service/appointment"
	"github.com/jwalitptl/scheduling-api/internal/service/availability"
	"github.com/jwalitptl/scheduling-api/internal/service/event"
	"github.com/jwalitptl/scheduling-api/pkg/auth"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.Config
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return err
	}

	doctors := a.Doctors()
	events := event.NewEventService()
	zl := a.Logger.Zerolog()

	availSvc := availability.NewService(a.DB, doctors, a.SlotCache(), events, a.Metrics, zl)
	apptSvc := appointment.NewService(a.DB, doctors, events, a.Metrics, zl, appointment.Options{
		Location:       loc,
		MaxAdvanceDays: cfg.Scheduling.MaxAdvanceDays,
	})

	checks := map[string]health.Pinger{"database": a.DB}
	if a.Redis != nil {
		client := a.Redis
		checks["redis"] = health.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.Security.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Security.AllowedOrigins
	}

	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		gatherer = a.Registry
	}

	gin.SetMode(gin.ReleaseMode)
	r := router.NewRouter(
		middleware.NewAuthMiddleware(auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer)),
		availabilityhandler.NewHandler(availSvc),
		appointmenthandler.NewHandler(apptSvc),
		health.NewHandler(checks),
		a.Metrics,
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig:       corsConfig,
			RequestTimeout:   cfg.Server.RequestTimeout,
			Gatherer:         gatherer,
			MetricsPath:      cfg.Metrics.Path,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("Starting server", "addr", srv.Addr, "database", cfg.Database.Driver, "cache", cfg.Cache.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.Logger.Info("Server exited properly")
	return nil
}
