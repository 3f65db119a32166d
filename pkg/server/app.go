package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	applogger "MarketPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	engine    *usecase.Engine
	collector *usecase.FeedCollector
	handler   xhttp.Handler
	publisher drepo.EventPublisher
	snapshots drepo.SnapshotStore

	httpServer *xhttp.Server
	evCh       chan *models.Event
	subID      int
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	engine *usecase.Engine,
	collector *usecase.FeedCollector,
	handler xhttp.Handler,
	publisher drepo.EventPublisher,
	snapshots drepo.SnapshotStore,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		engine:    engine,
		collector: collector,
		handler:   handler,
		publisher: publisher,
		snapshots: snapshots,
		evCh:      make(chan *models.Event, 1024),
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fan engine events out to Kafka/Redis without blocking ingestion.
	if a.publisher != nil || a.snapshots != nil {
		a.subID = a.engine.Subscribe(func(ev *models.Event) {
			select {
			case a.evCh <- ev:
			default:
				// drop on backpressure; external sinks are best-effort
			}
		})
		go a.forward(ctx)
	}

	if err := a.engine.Start(); err != nil {
		return err
	}
	a.log.Info("engine running",
		applogger.Duration("update_interval", a.engine.Config().UpdateInterval),
		applogger.Strings("symbols", a.engine.TrackedSymbols()))

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			a.log.Error("feed collector error", applogger.Error(err))
		} else {
			a.log.Info("feed collector started")
		}
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// forward drains the event channel into the external sinks.
func (a *App) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.evCh:
			if ev == nil {
				continue
			}
			if a.publisher != nil {
				if err := a.publisher.Publish(ctx, ev); err != nil {
					a.log.Warn("event publish failed", applogger.Error(err))
				}
			}
			if a.snapshots != nil {
				a.snapshot(ctx, ev)
			}
		}
	}
}

func (a *App) snapshot(ctx context.Context, ev *models.Event) {
	switch ev.Kind {
	case models.EventDataUpdated:
		if rec, ok := ev.Payload.(*models.AggregatedRecord); ok {
			if err := a.snapshots.SaveRecord(ctx, rec); err != nil {
				a.log.Warn("record snapshot failed", applogger.Error(err))
			}
		}
	case models.EventSummaryUpdated:
		if sum, ok := ev.Payload.(*models.MarketSummary); ok {
			if err := a.snapshots.SaveSummary(ctx, sum); err != nil {
				a.log.Warn("summary snapshot failed", applogger.Error(err))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}

	if a.subID != 0 {
		a.engine.Unsubscribe(a.subID)
	}
	if err := a.engine.Stop(); err != nil {
		a.log.Warn("engine stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("event publisher close error", applogger.Error(err))
		}
	}
	if a.snapshots != nil {
		if err := a.snapshots.Close(); err != nil {
			a.log.Warn("snapshot store close error", applogger.Error(err))
		}
	}

	if err := a.engine.Destroy(); err != nil {
		a.log.Warn("engine destroy error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
