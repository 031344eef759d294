package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

const auditSelectCols = `id, ts, action, actor, detail`

// AuditStore implements domain.AuditStore over PostgreSQL. The detail map is
// stored as JSONB so operators can query it directly.
type AuditStore struct {
	pool *pgxpool.Pool
}

var _ domain.AuditStore = (*AuditStore)(nil)

// NewAuditStore creates an AuditStore backed by the given client.
func NewAuditStore(c *Client) *AuditStore {
	return &AuditStore{pool: c.Pool()}
}

// Log appends an entry to the audit log. A missing ID or timestamp is filled
// in so callers can log fire-and-forget.
func (s *AuditStore) Log(ctx context.Context, entry domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	const q = `INSERT INTO audit_log (id, ts, action, actor, detail) VALUES ($1, $2, $3, $4, $5)`

	_, err := s.pool.Exec(ctx, q,
		entry.ID,
		entry.Timestamp,
		entry.Action,
		addrKey(entry.Actor),
		entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("postgres: audit log: %w", err)
	}
	return nil
}

// List returns audit entries newest first.
func (s *AuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	opts = opts.Normalize()
	q := `SELECT ` + auditSelectCols + ` FROM audit_log ORDER BY ts DESC LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, q, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit: %w", err)
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

// ListBefore returns entries older than the cutoff, oldest first.
func (s *AuditStore) ListBefore(ctx context.Context, cutoff time.Time, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	opts = opts.Normalize()
	q := `SELECT ` + auditSelectCols + ` FROM audit_log WHERE ts < $1 ORDER BY ts ASC LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, q, cutoff, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit before: %w", err)
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

// DeleteBefore removes entries older than the cutoff and reports how many
// were deleted.
func (s *AuditStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM audit_log WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete audit before: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanAuditRows(rows pgx.Rows) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			entry domain.AuditEntry
			actor string
		)
		err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.Action, &actor, &entry.Detail)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan audit entry: %w", err)
		}
		entry.Actor = common.HexToAddress(actor)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: scan audit entries: %w", err)
	}
	return entries, nil
}
