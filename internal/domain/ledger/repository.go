package ledger

import (
	"context"

	"outletstock/internal/core/types"
	"outletstock/internal/domain/documents/stockcheck"
)

// SnapshotLoader reads the catalog and the source collections of one outlet
// for [from, to]. Implementations must return a consistent view; callers run
// Load inside a read-only transaction.
type SnapshotLoader interface {
	Load(ctx context.Context, outlet string, from, to types.Date) (*Snapshot, error)
}

// Cache stores computed ledgers. Invalidate must make every cached ledger of
// the outlet unreachable, including ones stored later under a stamp taken
// before the invalidation.
type Cache interface {
	Get(ctx context.Context, req Request) (*Ledger, bool, error)

	// Stamp returns the outlet's current cache generation. Callers take it
	// before loading the snapshot and pass it to Set.
	Stamp(ctx context.Context, outlet string) (uint64, error)
	Set(ctx context.Context, req Request, stamp uint64, l *Ledger) error
	Invalidate(ctx context.Context, outlet string) error
}

// Locker serializes override writes across processes.
type Locker interface {
	// Obtain blocks until the lock for key is held or ctx is done.
	Obtain(ctx context.Context, key string) (release func(ctx context.Context) error, err error)
}

// AuditLogger records applied overrides.
type AuditLogger interface {
	LogOverride(ctx context.Context, entry OverrideAudit) error
}

// SyncPublisher hands rewritten stock checks to the synchronization layer.
// It runs inside the override transaction.
type SyncPublisher interface {
	PublishCheck(ctx context.Context, check *stockcheck.StockCheck) error
}

type nopCache struct{}

func (nopCache) Get(context.Context, Request) (*Ledger, bool, error) { return nil, false, nil }
func (nopCache) Stamp(context.Context, string) (uint64, error)       { return 0, nil }
func (nopCache) Set(context.Context, Request, uint64, *Ledger) error { return nil }
func (nopCache) Invalidate(context.Context, string) error            { return nil }
