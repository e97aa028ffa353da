package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"outletstock/internal/infrastructure/storage/postgres"
	"outletstock/pkg/logger"
)

// StockCheckChannel is the Redis channel devices subscribe to for rewritten
// stock checks.
const StockCheckChannel = keyPrefix + "stock_checks"

// SyncRelayHandler publishes outbox messages to Redis subscribers and drops
// the outlet's cached ledgers.
type SyncRelayHandler struct {
	rdb         redis.Cmdable
	invalidator Invalidator
}

var _ postgres.OutboxHandler = (*SyncRelayHandler)(nil)

// NewSyncRelayHandler creates a handler. invalidator may be nil.
func NewSyncRelayHandler(rdb redis.Cmdable, invalidator Invalidator) *SyncRelayHandler {
	return &SyncRelayHandler{rdb: rdb, invalidator: invalidator}
}

// Handle implements postgres.OutboxHandler.
func (h *SyncRelayHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	receivers, err := h.rdb.Publish(ctx, StockCheckChannel, msg.Payload).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.EventType, err)
	}

	if h.invalidator != nil {
		if err := h.invalidator.Invalidate(ctx, msg.Outlet); err != nil {
			return fmt.Errorf("invalidate %s: %w", msg.Outlet, err)
		}
	}

	logger.Debug(ctx, "outbox message relayed",
		"id", msg.ID,
		"event_type", msg.EventType,
		"outlet", msg.Outlet,
		"receivers", receivers,
	)
	return nil
}
