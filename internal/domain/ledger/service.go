package ledger

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"outletstock/internal/core/apperror"
	"outletstock/internal/core/tx"
	"outletstock/pkg/logger"
)

// Service loads snapshots and runs the engine. Concurrent requests for the
// same key share one computation, which runs to completion even when the
// caller that started it goes away. A recompute never overlaps an override
// write on the same outlet.
type Service struct {
	engine *Engine
	loader SnapshotLoader
	txm    tx.ReadOnlyManager
	cache  Cache

	group singleflight.Group
	locks outletLocks
	views viewTracker
}

// Option configures a Service.
type Option func(*Service)

// WithCache stores computed ledgers in c.
func WithCache(c Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// NewService creates a ledger service.
func NewService(engine *Engine, loader SnapshotLoader, txm tx.ReadOnlyManager, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		loader: loader,
		txm:    txm,
		cache:  nopCache{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ledger returns the ledger of req, from cache when possible.
func (s *Service) Ledger(ctx context.Context, req Request) (*Ledger, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if l, ok, err := s.cache.Get(ctx, req); err != nil {
		logger.Warn(ctx, "ledger cache read failed", "key", req.Key(), "error", err)
	} else if ok {
		return l, nil
	}

	v, err, shared := s.group.Do(req.Key(), func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), req)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug(ctx, "ledger computation shared", "key", req.Key())
	}
	return v.(*Ledger), nil
}

// Recompute evaluates req bypassing the cache read and stores the result.
func (s *Service) Recompute(ctx context.Context, req Request) (*Ledger, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	v, err, _ := s.group.Do(req.Key(), func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Ledger), nil
}

// LedgerForView is Ledger for a client view that may issue several requests
// in a row. Only the most recent request of the view gets its result; older
// ones complete and fail with a superseded error.
func (s *Service) LedgerForView(ctx context.Context, viewID string, req Request) (*Ledger, error) {
	if viewID == "" {
		return s.Ledger(ctx, req)
	}

	seq := s.views.begin(viewID)
	l, err := s.Ledger(ctx, req)
	latest := s.views.end(viewID, seq)

	if !latest {
		logger.Debug(ctx, "ledger result discarded", "view", viewID, "key", req.Key())
		return nil, apperror.NewSuperseded(viewID, req.Key())
	}
	return l, err
}

// ProductLedger returns the history of one product. Either side of a pair
// resolves to the pair.
func (s *Service) ProductLedger(ctx context.Context, req Request, productID string) (*ProductInventoryHistory, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if productID == "" {
		return nil, apperror.NewValidation("productId is required")
	}

	v, err, _ := s.group.Do(req.Key()+"|"+productID, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		unlock := s.locks.rlock(req.Outlet)
		defer unlock()

		snap, err := s.load(ctx, req)
		if err != nil {
			return nil, err
		}
		return s.engine.ComputeProduct(ctx, snap, req, productID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ProductInventoryHistory), nil
}

// Invalidate drops cached ledgers of outlet.
func (s *Service) Invalidate(ctx context.Context, outlet string) error {
	return s.cache.Invalidate(ctx, outlet)
}

// lockForWrite blocks recomputation of outlet until the returned func is called.
func (s *Service) lockForWrite(outlet string) func() {
	return s.locks.lock(outlet)
}

func (s *Service) compute(ctx context.Context, req Request) (*Ledger, error) {
	unlock := s.locks.rlock(req.Outlet)
	defer unlock()

	stamp, stampErr := s.cache.Stamp(ctx, req.Outlet)
	if stampErr != nil {
		logger.Warn(ctx, "ledger cache stamp failed", "outlet", req.Outlet, "error", stampErr)
	}

	snap, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}

	l, err := s.engine.Compute(ctx, snap, req)
	if err != nil {
		return nil, err
	}

	if stampErr == nil {
		if err := s.cache.Set(ctx, req, stamp, l); err != nil {
			logger.Warn(ctx, "ledger cache write failed", "key", req.Key(), "error", err)
		}
	}

	logger.Debug(ctx, "ledger computed",
		"key", req.Key(),
		"products", len(l.Products),
	)
	return l, nil
}

func (s *Service) load(ctx context.Context, req Request) (*Snapshot, error) {
	from, to := req.SourceRange()

	var snap *Snapshot
	err := s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		snap, err = s.loader.Load(ctx, req.Outlet, from, to)
		return err
	})
	if err != nil {
		if _, ok := apperror.AsAppError(err); ok {
			return nil, err
		}
		return nil, apperror.NewDatabase(fmt.Errorf("load snapshot %s: %w", req.Key(), err))
	}
	return snap, nil
}

// outletLocks holds one RWMutex per outlet: recomputes read, overrides write.
type outletLocks struct {
	mu sync.Mutex
	m  map[string]*sync.RWMutex
}

func (o *outletLocks) get(outlet string) *sync.RWMutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.m == nil {
		o.m = make(map[string]*sync.RWMutex)
	}
	l, ok := o.m[outlet]
	if !ok {
		l = &sync.RWMutex{}
		o.m[outlet] = l
	}
	return l
}

func (o *outletLocks) rlock(outlet string) func() {
	l := o.get(outlet)
	l.RLock()
	return l.RUnlock
}

func (o *outletLocks) lock(outlet string) func() {
	l := o.get(outlet)
	l.Lock()
	return l.Unlock
}

// viewTracker remembers the latest request sequence of each view while any
// of its requests is in flight.
type viewTracker struct {
	mu    sync.Mutex
	seq   uint64
	views map[string]*viewState
}

type viewState struct {
	latest   uint64
	inflight int
}

func (t *viewTracker) begin(view string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.views == nil {
		t.views = make(map[string]*viewState)
	}
	t.seq++
	st, ok := t.views[view]
	if !ok {
		st = &viewState{}
		t.views[view] = st
	}
	st.latest = t.seq
	st.inflight++
	return t.seq
}

// end reports whether seq is still the latest request of view.
func (t *viewTracker) end(view string, seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.views[view]
	latest := st.latest == seq
	st.inflight--
	if st.inflight == 0 {
		delete(t.views, view)
	}
	return latest
}
