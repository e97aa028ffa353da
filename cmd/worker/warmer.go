package main

import (
	"context"
	"time"

	"outletstock/internal/core/types"
	"outletstock/internal/domain/catalog"
	"outletstock/internal/domain/ledger"
	"outletstock/pkg/logger"
)

// OutletLister lists the outlets to warm.
type OutletLister interface {
	ListOutlets(ctx context.Context) ([]catalog.Outlet, error)
}

// Recomputer recomputes a ledger and refreshes the cache entry.
type Recomputer interface {
	Recompute(ctx context.Context, req ledger.Request) (*ledger.Ledger, error)
}

// BatchProcessor relays one batch of pending outbox messages.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context) (int, error)
}

// Worker keeps the short ledger of every outlet warm and relays the outbox.
type Worker struct {
	outlets  OutletLister
	ledgers  Recomputer
	outbox   BatchProcessor
	interval time.Duration
	now      func() time.Time
	log      *logger.Logger
}

func NewWorker(outlets OutletLister, ledgers Recomputer, outbox BatchProcessor, interval time.Duration, log *logger.Logger) *Worker {
	return &Worker{
		outlets:  outlets,
		ledgers:  ledgers,
		outbox:   outbox,
		interval: interval,
		now:      time.Now,
		log:      log.WithComponent("worker"),
	}
}

// Run blocks until ctx is done. onHour runs once an hour.
func (w *Worker) Run(ctx context.Context, onHour func(ctx context.Context)) {
	warmTicker := time.NewTicker(w.interval)
	defer warmTicker.Stop()

	outboxTicker := time.NewTicker(500 * time.Millisecond)
	defer outboxTicker.Stop()

	statsTicker := time.NewTicker(time.Hour)
	defer statsTicker.Stop()

	w.Warm(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-warmTicker.C:
			w.Warm(ctx)
		case <-outboxTicker.C:
			w.relay(ctx)
		case <-statsTicker.C:
			if onHour != nil {
				onHour(ctx)
			}
		}
	}
}

// Warm recomputes today's short ledger of every outlet. It returns the number
// of outlets warmed; one outlet failing does not stop the others.
func (w *Worker) Warm(ctx context.Context) int {
	outlets, err := w.outlets.ListOutlets(ctx)
	if err != nil {
		w.log.Errorw("failed to list outlets", "error", err)
		return 0
	}

	today := types.DateOf(w.now())
	warmed := 0
	for _, o := range outlets {
		if ctx.Err() != nil {
			return warmed
		}
		req := ledger.Request{Outlet: o.Name, Anchor: today, Mode: ledger.ModeShort}
		if _, err := w.ledgers.Recompute(ctx, req); err != nil {
			w.log.Warnw("ledger warm failed", "outlet", o.Name, "error", err)
			continue
		}
		warmed++
	}

	if warmed > 0 {
		w.log.Debugw("ledgers warmed", "count", warmed, "date", today)
	}
	return warmed
}

func (w *Worker) relay(ctx context.Context) {
	n, err := w.outbox.ProcessBatch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Errorw("outbox relay failed", "error", err)
		}
		return
	}
	if n > 0 {
		w.log.Debugw("processed outbox batch", "count", n)
	}
}
