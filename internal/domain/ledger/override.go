package ledger

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"outletstock/internal/core/apperror"
	appctx "outletstock/internal/core/context"
	"outletstock/internal/core/id"
	"outletstock/internal/core/security"
	"outletstock/internal/core/tx"
	"outletstock/internal/core/types"
	"outletstock/internal/domain/catalog"
	"outletstock/internal/domain/conversion"
	"outletstock/internal/domain/documents/stockcheck"
	"outletstock/pkg/logger"
)

// DefaultOperator is stamped on checks created by an override when the
// request names no operator.
const DefaultOperator = "manual-override"

// SetCurrentStockCommand replaces the current stock of one product at one
// outlet on one date.
type SetCurrentStockCommand struct {
	Outlet    string
	ProductID string
	Date      types.Date
	Whole     float64
	Sub       float64
}

// Validate checks the command fields.
func (c SetCurrentStockCommand) Validate() error {
	if c.Outlet == "" {
		return apperror.NewValidation("outlet is required").WithDetail("field", "outlet")
	}
	if c.ProductID == "" {
		return apperror.NewValidation("productId is required").WithDetail("field", "productId")
	}
	if _, err := types.ParseDate(c.Date.String()); err != nil {
		return apperror.NewValidation("invalid date").WithDetail("field", "date").WithCause(err)
	}
	for field, v := range map[string]float64{"whole": c.Whole, "sub": c.Sub} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperror.NewValidation("quantity must be a finite number").WithDetail("field", field)
		}
	}
	return nil
}

// OverrideAudit describes one applied override.
type OverrideAudit struct {
	CheckID   id.ID              `json:"checkId"`
	Outlet    string             `json:"outlet"`
	ProductID string             `json:"productId"`
	Date      types.Date         `json:"date"`
	Operator  string             `json:"operator"`
	Created   bool               `json:"created"`
	Previous  []stockcheck.Count `json:"previous"`
	Current   []stockcheck.Count `json:"current"`
}

// OverrideRecord is an override read back from the audit trail.
type OverrideRecord struct {
	ID        id.ID
	Override  OverrideAudit
	CreatedAt time.Time
}

// Gateway is the write path of the ledger: it persists manual corrections of
// current stock into the stock check of the corrected date.
type Gateway struct {
	catalog catalog.Repository
	checks  stockcheck.Repository
	txm     tx.Manager
	policy  security.OverridePolicy
	service *Service
	locker  Locker
	audit   AuditLogger
	sync    SyncPublisher
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithLocker serializes overrides across processes.
func WithLocker(l Locker) GatewayOption {
	return func(g *Gateway) { g.locker = l }
}

// WithAudit records every applied override.
func WithAudit(a AuditLogger) GatewayOption {
	return func(g *Gateway) { g.audit = a }
}

// WithSyncPublisher forwards every rewritten check to the synchronization layer.
func WithSyncPublisher(p SyncPublisher) GatewayOption {
	return func(g *Gateway) { g.sync = p }
}

// WithPolicy rejects overrides into closed periods.
func WithPolicy(p security.OverridePolicy) GatewayOption {
	return func(g *Gateway) {
		if p != nil {
			g.policy = p
		}
	}
}

// NewGateway creates the override gateway. service may be nil when no ledger
// is computed in-process.
func NewGateway(cat catalog.Repository, checks stockcheck.Repository, txm tx.Manager, service *Service, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		catalog: cat,
		checks:  checks,
		txm:     txm,
		policy:  security.OpenPolicy{},
		service: service,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetCurrentStock stores the new current stock on the latest user-authored
// check of the date, creating one if needed. Both sides of a pair get the
// value and the manual edit stamp. Only the corrected date is overridden;
// the next date picks the value up as its opening.
func (g *Gateway) SetCurrentStock(ctx context.Context, cmd SetCurrentStockCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	if _, err := g.catalog.GetOutlet(ctx, cmd.Outlet); err != nil {
		if apperror.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("resolve outlet %s: %w", cmd.Outlet, err)
	}

	if err := g.policy.CanModify(ctx, cmd.Date); err != nil {
		return err
	}

	res, paired, err := g.resolveProduct(ctx, cmd.ProductID)
	if err != nil {
		return err
	}

	if g.service != nil {
		unlock := g.service.lockForWrite(cmd.Outlet)
		defer unlock()
	}

	if g.locker != nil {
		release, err := g.locker.Obtain(ctx, fmt.Sprintf("override:%s:%s", cmd.Outlet, cmd.Date))
		if err != nil {
			return fmt.Errorf("obtain override lock: %w", err)
		}
		defer func() {
			if err := release(ctx); err != nil {
				logger.Warn(ctx, "release override lock failed", "outlet", cmd.Outlet, "error", err)
			}
		}()
	}

	err = g.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return g.apply(ctx, cmd, res, paired)
	})
	if err != nil {
		return err
	}

	if g.service != nil {
		if err := g.service.Invalidate(ctx, cmd.Outlet); err != nil {
			logger.Warn(ctx, "ledger cache invalidation failed", "outlet", cmd.Outlet, "error", err)
		}
	}

	logger.Info(ctx, "current stock overridden",
		"outlet", cmd.Outlet,
		"product_id", cmd.ProductID,
		"date", cmd.Date,
		"whole", cmd.Whole,
		"sub", cmd.Sub,
	)
	return nil
}

// resolveProduct checks the product exists and returns its pairing.
func (g *Gateway) resolveProduct(ctx context.Context, productID string) (conversion.Resolution, bool, error) {
	products, err := g.catalog.ListProducts(ctx)
	if err != nil {
		return conversion.Resolution{}, false, fmt.Errorf("list products: %w", err)
	}
	found := false
	for _, p := range products {
		if p.ID == productID {
			found = true
			break
		}
	}
	if !found {
		return conversion.Resolution{}, false, apperror.NewNotFound("product", productID)
	}

	pairs, err := g.catalog.ListConversions(ctx)
	if err != nil {
		return conversion.Resolution{}, false, fmt.Errorf("list conversions: %w", err)
	}
	res, ok := conversion.NewResolver(ctx, pairs).Resolve(productID)
	return res, ok, nil
}

func (g *Gateway) apply(ctx context.Context, cmd SetCurrentStockCommand, res conversion.Resolution, paired bool) error {
	list, err := g.checks.ListByOutletDate(ctx, cmd.Outlet, cmd.Date)
	if err != nil {
		return fmt.Errorf("list stock checks: %w", err)
	}

	operator := appctx.GetOperator(ctx)
	if operator == "" || operator == stockcheck.AutoCompletedBy {
		operator = DefaultOperator
	}

	check := stockcheck.LatestUserAuthored(list)
	created := check == nil
	if created {
		check = stockcheck.New(cmd.Outlet, cmd.Date, operator)
	} else {
		check.Touch()
	}

	values := map[string]float64{cmd.ProductID: cmd.Whole + cmd.Sub}
	if paired {
		scale := res.Scale()
		amt := scale.Normalize(conversion.Amount{Whole: types.Qty(cmd.Whole), Sub: types.Qty(cmd.Sub)})
		values = map[string]float64{
			res.Pair.WholeProductID: amt.Whole.InexactFloat64(),
			res.Pair.SubProductID:   amt.Sub.InexactFloat64(),
		}
	}

	audit := OverrideAudit{
		CheckID:   check.ID,
		Outlet:    cmd.Outlet,
		ProductID: cmd.ProductID,
		Date:      cmd.Date,
		Operator:  operator,
		Created:   created,
	}

	for _, pid := range sortedKeys(values) {
		cnt := check.UpsertCount(pid)
		audit.Previous = append(audit.Previous, *cnt)
		cnt.Quantity = values[pid]
		cnt.OpeningStock = values[pid]
		cnt.ManuallyEditedDate = cmd.Date
		audit.Current = append(audit.Current, *cnt)
	}

	if err := check.Validate(ctx); err != nil {
		return err
	}
	if err := g.checks.Save(ctx, check); err != nil {
		return fmt.Errorf("save stock check: %w", err)
	}

	if g.sync != nil {
		if err := g.sync.PublishCheck(ctx, check); err != nil {
			return fmt.Errorf("publish stock check: %w", err)
		}
	}

	if g.audit != nil {
		if err := g.audit.LogOverride(ctx, audit); err != nil {
			return fmt.Errorf("write override audit: %w", err)
		}
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
