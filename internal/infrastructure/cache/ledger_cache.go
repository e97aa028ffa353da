package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"outletstock/internal/domain/ledger"
)

// DefaultLedgerTTL bounds how long a computed ledger is served.
const DefaultLedgerTTL = 5 * time.Minute

// LedgerCache stores computed ledgers in Redis.
//
// Each outlet has a generation counter. Entries are keyed by the generation
// current when their computation started, so bumping the counter makes every
// older entry unreachable; they expire through their TTL.
type LedgerCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

var _ ledger.Cache = (*LedgerCache)(nil)

// NewLedgerCache creates a cache with the given entry TTL.
func NewLedgerCache(rdb redis.Cmdable, ttl time.Duration) *LedgerCache {
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	return &LedgerCache{rdb: rdb, ttl: ttl}
}

func generationKey(outlet string) string {
	return keyPrefix + "ledger:" + outlet + ":gen"
}

func entryKey(req ledger.Request, stamp uint64) string {
	return fmt.Sprintf("%sledger:%s:g%d:%s:%d", keyPrefix, req.Outlet, stamp, req.Anchor, int(req.Mode))
}

// Stamp implements ledger.Cache.
func (c *LedgerCache) Stamp(ctx context.Context, outlet string) (uint64, error) {
	v, err := c.rdb.Get(ctx, generationKey(outlet)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read ledger generation: %w", err)
	}
	gen, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ledger generation %q: %w", v, err)
	}
	return gen, nil
}

// Get implements ledger.Cache.
func (c *LedgerCache) Get(ctx context.Context, req ledger.Request) (*ledger.Ledger, bool, error) {
	stamp, err := c.Stamp(ctx, req.Outlet)
	if err != nil {
		return nil, false, err
	}

	raw, err := c.rdb.Get(ctx, entryKey(req, stamp)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read ledger: %w", err)
	}

	var l ledger.Ledger
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, false, fmt.Errorf("decode ledger: %w", err)
	}
	return &l, true, nil
}

// Set implements ledger.Cache.
func (c *LedgerCache) Set(ctx context.Context, req ledger.Request, stamp uint64, l *ledger.Ledger) error {
	raw, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := c.rdb.Set(ctx, entryKey(req, stamp), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// Invalidate implements ledger.Cache.
func (c *LedgerCache) Invalidate(ctx context.Context, outlet string) error {
	if err := c.rdb.Incr(ctx, generationKey(outlet)).Err(); err != nil {
		return fmt.Errorf("bump ledger generation: %w", err)
	}
	return nil
}
