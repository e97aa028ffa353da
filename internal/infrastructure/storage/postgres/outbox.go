package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"outletstock/internal/core/id"
	"outletstock/internal/domain/documents/stockcheck"
	"outletstock/internal/domain/ledger"
	"outletstock/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// EventStockCheckOverridden is emitted when an override rewrites a stock check.
const EventStockCheckOverridden = "stock_check.overridden"

const maxOutboxRetries = 5

// OutboxMessage represents a message in the transactional outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	Outlet        string       `db:"outlet"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// OutboxPublisher writes stock check changes to sys_outbox so the
// synchronization layer receives them exactly when the write commits.
type OutboxPublisher struct {
	txManager *TxManager
}

var _ ledger.SyncPublisher = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

// PublishCheck implements ledger.SyncPublisher. It must run inside a transaction.
func (p *OutboxPublisher) PublishCheck(ctx context.Context, check *stockcheck.StockCheck) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	payload, err := json.Marshal(check)
	if err != nil {
		return fmt.Errorf("marshal stock check: %w", err)
	}

	query, args, err := psql.Insert("sys_outbox").
		Columns("id", "aggregate_type", "aggregate_id", "outlet", "event_type", "payload", "status", "created_at").
		Values(id.New(), "stock_check", check.ID, check.Outlet, EventStockCheckOverridden, payload,
			OutboxStatusPending, time.Now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build outbox insert: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// OutboxHandler processes outbox messages.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxRelay hands pending messages to a handler. Failed messages are
// retried with linear backoff and parked as failed after maxOutboxRetries.
type OutboxRelay struct {
	txManager *TxManager
	batchSize uint64
	handler   OutboxHandler
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(txManager *TxManager, batchSize int, handler OutboxHandler) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{txManager: txManager, batchSize: uint64(batchSize), handler: handler}
}

// ProcessBatch handles one batch of pending messages and returns how many
// were published. Rows are locked with SKIP LOCKED so several relays can run.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		query, args, err := psql.Select("id", "aggregate_type", "aggregate_id", "outlet", "event_type", "payload",
			"status", "retry_count", "last_error", "next_retry_at", "created_at", "published_at").
			From("sys_outbox").
			Where(sq.Eq{"status": OutboxStatusPending}).
			Where(sq.Or{sq.Eq{"next_retry_at": nil}, sq.Expr("next_retry_at <= NOW()")}).
			OrderBy("created_at").
			Limit(r.batchSize).
			Suffix("FOR UPDATE SKIP LOCKED").
			ToSql()
		if err != nil {
			return fmt.Errorf("build outbox query: %w", err)
		}

		var messages []*OutboxMessage
		if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &messages, query, args...); err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			if err := r.processMessage(ctx, msg); err != nil {
				logger.Warn(ctx, "outbox message failed",
					"id", msg.ID, "event_type", msg.EventType, "retry", msg.RetryCount, "error", err)
				continue
			}
			processed++
		}
		return nil
	})
	return processed, err
}

func (r *OutboxRelay) processMessage(ctx context.Context, msg *OutboxMessage) error {
	q := r.txManager.GetQuerier(ctx)

	if handleErr := r.handler.Handle(ctx, msg); handleErr != nil {
		status := OutboxStatusPending
		if msg.RetryCount+1 >= maxOutboxRetries {
			status = OutboxStatusFailed
		}
		query, args, err := psql.Update("sys_outbox").
			Set("retry_count", sq.Expr("retry_count + 1")).
			Set("last_error", handleErr.Error()).
			Set("next_retry_at", time.Now().UTC().Add(time.Duration(msg.RetryCount+1)*time.Minute)).
			Set("status", status).
			Where(sq.Eq{"id": msg.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build retry update: %w", err)
		}
		if _, err := q.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("update failed message: %w", err)
		}
		return handleErr
	}

	query, args, err := psql.Update("sys_outbox").
		Set("status", OutboxStatusPublished).
		Set("published_at", time.Now().UTC()).
		Where(sq.Eq{"id": msg.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build publish update: %w", err)
	}
	_, err = q.Exec(ctx, query, args...)
	return err
}
