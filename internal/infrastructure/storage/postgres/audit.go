package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/klauspost/compress/zstd"

	"outletstock/internal/core/id"
	"outletstock/internal/domain/ledger"
)

// AuditAction represents the type of audited operation.
type AuditAction string

const AuditActionOverride AuditAction = "override"

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

const defaultCompressThreshold = 4 * 1024

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            AuditAction     `db:"action"`
	Outlet            string          `db:"outlet"`
	Operator          string          `db:"operator"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditService writes the override audit trail to sys_audit.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ ledger.AuditLogger = (*AuditService)(nil)

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// LogOverride implements ledger.AuditLogger. It runs in the caller's
// transaction when there is one.
func (s *AuditService) LogOverride(ctx context.Context, o ledger.OverrideAudit) error {
	changes, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal override: %w", err)
	}
	return s.Log(ctx, AuditEntry{
		EntityType: "stock_check",
		EntityID:   o.CheckID,
		Action:     AuditActionOverride,
		Outlet:     o.Outlet,
		Operator:   o.Operator,
		Changes:    changes,
	})
}

// Log records an audit entry, compressing large change sets.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.compress(&entry)

	query, args, err := psql.Insert("sys_audit").
		Columns("id", "entity_type", "entity_id", "action", "outlet", "operator",
			"changes", "changes_compressed", "compression_algo", "created_at").
		Values(entry.ID, entry.EntityType, entry.EntityID, entry.Action, entry.Outlet, entry.Operator,
			entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}

	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns the latest override entries of an outlet, newest first.
func (s *AuditService) History(ctx context.Context, outlet string, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query, args, err := psql.Select("id", "entity_type", "entity_id", "action", "outlet", "operator",
		"changes", "changes_compressed", "compression_algo", "created_at").
		From("sys_audit").
		Where(sq.Eq{"outlet": outlet, "action": AuditActionOverride}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.Outlet, &e.Operator,
			&e.Changes, &e.ChangesCompressed, &e.CompressionAlgo, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if err := s.decompress(&e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Overrides returns the latest overrides of an outlet decoded from their
// audit entries, newest first.
func (s *AuditService) Overrides(ctx context.Context, outlet string, limit int) ([]ledger.OverrideRecord, error) {
	entries, err := s.History(ctx, outlet, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.OverrideRecord, 0, len(entries))
	for _, e := range entries {
		rec, err := overrideRecord(e)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func overrideRecord(e AuditEntry) (ledger.OverrideRecord, error) {
	rec := ledger.OverrideRecord{ID: e.ID, CreatedAt: e.CreatedAt}
	if err := json.Unmarshal(e.Changes, &rec.Override); err != nil {
		return rec, fmt.Errorf("decode override %s: %w", e.ID, err)
	}
	return rec, nil
}

func (s *AuditService) compress(e *AuditEntry) {
	e.CompressionAlgo = CompressionNone
	if len(e.Changes) <= s.compressThreshold {
		return
	}
	e.ChangesCompressed = s.encoder.EncodeAll(e.Changes, nil)
	e.Changes = nil
	e.CompressionAlgo = CompressionZstd
}

func (s *AuditService) decompress(e *AuditEntry) error {
	if e.CompressionAlgo != CompressionZstd || len(e.ChangesCompressed) == 0 {
		return nil
	}
	out, err := s.decoder.DecodeAll(e.ChangesCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress changes: %w", err)
	}
	e.Changes = out
	e.ChangesCompressed = nil
	return nil
}
