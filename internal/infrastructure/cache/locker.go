package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"outletstock/internal/core/apperror"
	"outletstock/internal/domain/ledger"
)

// Locker serializes override writes across processes with Redis locks.
type Locker struct {
	client  *redislock.Client
	ttl     time.Duration
	wait    time.Duration
	backoff time.Duration
}

var _ ledger.Locker = (*Locker)(nil)

// NewLocker creates a locker. Locks expire after ttl if never released;
// Obtain gives up after wait.
func NewLocker(rdb redis.Scripter, ttl, wait time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Locker{
		client:  redislock.New(rdb),
		ttl:     ttl,
		wait:    wait,
		backoff: 50 * time.Millisecond,
	}
}

// Obtain implements ledger.Locker.
func (l *Locker) Obtain(ctx context.Context, key string) (func(ctx context.Context) error, error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	lock, err := l.client.Obtain(waitCtx, keyPrefix+"lock:"+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.backoff),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, apperror.NewConflict("another override is in progress").WithDetail("lock", key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}, nil
}
