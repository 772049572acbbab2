package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/scheduling-api/internal/app"
	"github.com/jwalitptl/scheduling-api/internal/service/notification"
	internalworker "github.com/jwalitptl/scheduling-api/internal/worker"
	"github.com/jwalitptl/scheduling-api/pkg/messaging"
	"github.com/jwalitptl/scheduling-api/pkg/messaging/redis"
	"github.com/jwalitptl/scheduling-api/pkg/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	addr := flag.String("addr", ":8081", "address for the health and metrics server")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, *configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize worker")
	}
	defer a.Close()

	cfg := a.Config

	var broker messaging.Broker
	if a.Redis != nil {
		broker = redis.NewRedisBroker(a.Redis, a.Logger.Zerolog())
	} else {
		a.Logger.Warn("No redis.url configured, publishing to the in-process broker")
		broker = messaging.NewMemoryBroker()
	}

	var handlers []worker.Handler
	if cfg.Notification.Enabled {
		notifier := notification.NewService(cfg.Notification, a.Logger.Zerolog())
		handlers = append(handlers, notifier.Notify)
	}

	processor, err := worker.NewOutboxProcessor(a.DB.Outbox(), broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
		MaxRetries:    cfg.Outbox.MaxRetries,
		Channel:       cfg.Outbox.Channel,
	}, a.Logger, a.Metrics, handlers...)
	if err != nil {
		a.Logger.Fatal(err, "Failed to create outbox processor")
	}

	cleanup := internalworker.NewOutboxCleanupWorker(
		a.DB.Outbox(), cfg.Outbox.Retention, cfg.Outbox.CleanupEvery, a.Metrics, a.Logger.Zerolog(),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := a.DB.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error(err, "Health server failed")
		}
	}()

	a.Logger.Info("Worker started", "channel", cfg.Outbox.Channel, "notifications", boolString(cfg.Notification.Enabled))
	<-ctx.Done()
	a.Logger.Info("Shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error(err, "Health server forced to shutdown")
	}
	wg.Wait()
	a.Logger.Info("Worker stopped")
}

func boolString(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
