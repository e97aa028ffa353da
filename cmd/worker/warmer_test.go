package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outletstock/internal/core/types"
	"outletstock/internal/domain/catalog"
	"outletstock/internal/domain/ledger"
	"outletstock/pkg/logger"
)

type staticOutlets struct {
	outlets []catalog.Outlet
	err     error
}

func (s staticOutlets) ListOutlets(ctx context.Context) ([]catalog.Outlet, error) {
	return s.outlets, s.err
}

type recordingRecomputer struct {
	mu   sync.Mutex
	reqs []ledger.Request
	fail map[string]bool
}

func (r *recordingRecomputer) Recompute(ctx context.Context, req ledger.Request) (*ledger.Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	if r.fail[req.Outlet] {
		return nil, errors.New("load failed")
	}
	return &ledger.Ledger{Outlet: req.Outlet}, nil
}

func (r *recordingRecomputer) requests() []ledger.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ledger.Request(nil), r.reqs...)
}

type countingRelay struct {
	mu    sync.Mutex
	calls int
}

func (c *countingRelay) ProcessBatch(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 0, nil
}

func (c *countingRelay) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestWorker(outlets OutletLister, rec Recomputer, relay BatchProcessor) *Worker {
	w := NewWorker(outlets, rec, relay, time.Hour, logger.Nop())
	w.now = func() time.Time { return time.Date(2024, 10, 5, 14, 0, 0, 0, time.Local) }
	return w
}

func TestWorker_WarmRecomputesShortLedgerOfEveryOutlet(t *testing.T) {
	outlets := staticOutlets{outlets: []catalog.Outlet{{Name: "Main"}, {Name: "Kiosk"}}}
	rec := &recordingRecomputer{}
	w := newTestWorker(outlets, rec, &countingRelay{})

	assert.Equal(t, 2, w.Warm(context.Background()))

	today := types.MustDate("2024-10-05")
	assert.Equal(t, []ledger.Request{
		{Outlet: "Main", Anchor: today, Mode: ledger.ModeShort},
		{Outlet: "Kiosk", Anchor: today, Mode: ledger.ModeShort},
	}, rec.requests())
}

func TestWorker_WarmContinuesPastFailures(t *testing.T) {
	outlets := staticOutlets{outlets: []catalog.Outlet{{Name: "Main"}, {Name: "Kiosk"}, {Name: "Bakery"}}}
	rec := &recordingRecomputer{fail: map[string]bool{"Kiosk": true}}
	w := newTestWorker(outlets, rec, &countingRelay{})

	assert.Equal(t, 2, w.Warm(context.Background()))
	assert.Len(t, rec.requests(), 3)
}

func TestWorker_WarmWithoutOutlets(t *testing.T) {
	rec := &recordingRecomputer{}
	w := newTestWorker(staticOutlets{err: errors.New("db down")}, rec, &countingRelay{})

	assert.Zero(t, w.Warm(context.Background()))
	assert.Empty(t, rec.requests())
}

func TestWorker_RunWarmsAndRelaysUntilCancelled(t *testing.T) {
	outlets := staticOutlets{outlets: []catalog.Outlet{{Name: "Main"}}}
	rec := &recordingRecomputer{}
	relay := &countingRelay{}
	w := newTestWorker(outlets, rec, relay)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx, nil)
	}()

	require.Eventually(t, func() bool { return relay.count() > 0 }, 3*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Len(t, rec.requests(), 1)
}
