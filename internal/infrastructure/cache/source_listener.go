package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"outletstock/pkg/logger"
)

// SourceChangedChannel is the NOTIFY channel raised by the source table
// triggers. The payload is the affected outlet name.
const SourceChangedChannel = "source_changed"

// Invalidator drops cached state of an outlet.
type Invalidator interface {
	Invalidate(ctx context.Context, outlet string) error
}

// SourceListener invalidates cached ledgers when the synchronization layer
// writes source rows, using PostgreSQL LISTEN/NOTIFY.
type SourceListener struct {
	pool        *pgxpool.Pool
	invalidator Invalidator

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewSourceListener creates a listener.
func NewSourceListener(pool *pgxpool.Pool, invalidator Invalidator) *SourceListener {
	return &SourceListener{pool: pool, invalidator: invalidator}
}

// Start begins listening in the background.
func (l *SourceListener) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()
	if l.started {
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.listenLoop()
	logger.Info(l.ctx, "source listener started", "channel", SourceChangedChannel)
}

// Stop cancels the listener and waits for it to exit.
func (l *SourceListener) Stop() {
	l.lifecycleMu.Lock()
	if !l.started {
		l.lifecycleMu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.cancel = nil
	l.lifecycleMu.Unlock()

	cancel()
	l.wg.Wait()
	logger.Info(context.Background(), "source listener stopped")
}

func (l *SourceListener) listenLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			logger.Error(l.ctx, "failed to acquire connection for LISTEN", "error", err)
			l.pause()
			continue
		}

		if _, err := conn.Exec(l.ctx, "LISTEN "+SourceChangedChannel); err != nil {
			logger.Error(l.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			l.pause()
			continue
		}

		l.waitForNotifications(conn)
		conn.Release()
	}
}

func (l *SourceListener) pause() {
	select {
	case <-l.ctx.Done():
	case <-time.After(time.Second):
	}
}

func (l *SourceListener) waitForNotifications(conn *pgxpool.Conn) {
	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		ctx, cancel := context.WithTimeout(l.ctx, 30*time.Second)
		n, err := conn.Conn().WaitForNotification(ctx)
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
		cancel()

		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			if timedOut {
				continue
			}
			// connection lost; reacquire
			logger.Warn(l.ctx, "LISTEN connection failed", "error", err)
			return
		}

		l.handle(l.ctx, n.Channel, n.Payload)
	}
}

func (l *SourceListener) handle(ctx context.Context, channel, payload string) {
	if channel != SourceChangedChannel {
		return
	}
	outlet := strings.TrimSpace(payload)
	if outlet == "" {
		return
	}

	if err := l.invalidator.Invalidate(ctx, outlet); err != nil {
		logger.Error(ctx, "ledger invalidation failed", "outlet", outlet, "error", err)
		return
	}
	logger.Debug(ctx, "ledger invalidated by source change", "outlet", outlet)
}
