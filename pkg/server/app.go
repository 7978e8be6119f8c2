package server

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"syscall"
	"time"

	xhttp "SignalPull/pkg/http"
	pkgkafka "SignalPull/pkg/kafka"
	"SignalPull/pkg/logger"
	"SignalPull/pkg/queue"
)

// Scheduler is the periodic collection loop.
type Scheduler interface {
	Start(ctx context.Context)
	Stop()
}

// Resource is closed on shutdown, in reverse order of registration.
type Resource struct {
	Name string
	io.Closer
}

// App encapsulates the service lifecycle: HTTP, scheduler, job queue and the
// Kafka archive consumer.
type App struct {
	lgr             *logger.Logger
	httpServer      *xhttp.Server
	scheduler       Scheduler
	queue           queue.Worker
	consumer        *pkgkafka.Consumer
	resources       []Resource
	shutdownTimeout time.Duration
}

// New builds an App. consumer may be nil when Kafka is disabled.
func New(
	lgr *logger.Logger,
	httpServer *xhttp.Server,
	scheduler Scheduler,
	q queue.Worker,
	consumer *pkgkafka.Consumer,
	resources []Resource,
	shutdownTimeout time.Duration,
) *App {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 20 * time.Second
	}
	return &App{
		lgr:             lgr,
		httpServer:      httpServer,
		scheduler:       scheduler,
		queue:           q,
		consumer:        consumer,
		resources:       resources,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run starts every component and blocks until SIGINT/SIGTERM or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.start(ctx); err != nil {
		_ = a.shutdown()
		return err
	}

	<-ctx.Done()
	a.lgr.Info("Shutdown signal received")
	return a.shutdown()
}

func (a *App) start(ctx context.Context) error {
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			return err
		}
		a.lgr.Info("Job queue started")
	}
	if a.consumer != nil {
		if err := a.consumer.Start(ctx); err != nil {
			return err
		}
	}
	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}
	return a.httpServer.Start()
}

// shutdown stops intake first (HTTP, scheduler), then drains workers, then closes
// clients.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.lgr.Error("HTTP shutdown failed", logger.Error(err))
		errs = append(errs, err)
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.lgr.Warn("Kafka consumer stop failed", logger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.lgr.Warn("Job queue stop failed", logger.Error(err))
			errs = append(errs, err)
		}
	}
	for i := len(a.resources) - 1; i >= 0; i-- {
		r := a.resources[i]
		if err := r.Close(); err != nil {
			a.lgr.Warn("Close failed", logger.String("resource", r.Name), logger.Error(err))
			errs = append(errs, err)
		}
	}

	a.lgr.Info("Shutdown complete")
	return errors.Join(errs...)
}
