package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// ArchiveStore implements domain.ArchiveStore over PostgreSQL. Withdrawn
// positions are stored whole as JSONB; the fee and rewards columns are
// duplicated for SQL-level reporting.
type ArchiveStore struct {
	pool *pgxpool.Pool
}

var _ domain.ArchiveStore = (*ArchiveStore)(nil)

// NewArchiveStore creates an ArchiveStore backed by the given client.
func NewArchiveStore(c *Client) *ArchiveStore {
	return &ArchiveStore{pool: c.Pool()}
}

// Add records a withdrawn position.
func (s *ArchiveStore) Add(ctx context.Context, pos domain.ArchivedPosition) error {
	payload, err := json.Marshal(pos.Position)
	if err != nil {
		return fmt.Errorf("postgres: marshal archived position: %w", err)
	}

	const q = `
		INSERT INTO archived_positions (position, withdrawn_at, fee, rewards_paid)
		VALUES ($1, $2, $3::numeric, $4::numeric)`

	_, err = s.pool.Exec(ctx, q,
		payload,
		pos.WithdrawnAt,
		pos.Fee.String(),
		pos.RewardsPaid.String(),
	)
	if err != nil {
		return fmt.Errorf("postgres: add archived position: %w", err)
	}
	return nil
}

// ListBefore returns archived positions withdrawn before the cutoff, oldest
// first.
func (s *ArchiveStore) ListBefore(ctx context.Context, cutoff time.Time, opts domain.ListOpts) ([]domain.ArchivedPosition, error) {
	opts = opts.Normalize()
	const q = `
		SELECT position, withdrawn_at, fee::text, rewards_paid::text
		FROM archived_positions
		WHERE withdrawn_at < $1
		ORDER BY withdrawn_at ASC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, q, cutoff, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list archive before: %w", err)
	}
	defer rows.Close()

	var positions []domain.ArchivedPosition
	for rows.Next() {
		var (
			pos         domain.ArchivedPosition
			payload     []byte
			fee         string
			rewardsPaid string
		)
		if err := rows.Scan(&payload, &pos.WithdrawnAt, &fee, &rewardsPaid); err != nil {
			return nil, fmt.Errorf("postgres: scan archived position: %w", err)
		}
		if err := json.Unmarshal(payload, &pos.Position); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal archived position: %w", err)
		}
		if pos.Fee, err = parseBig(fee); err != nil {
			return nil, err
		}
		if pos.RewardsPaid, err = parseBig(rewardsPaid); err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list archive before: %w", err)
	}
	return positions, nil
}

// DeleteBefore removes archived positions withdrawn before the cutoff and
// reports how many were deleted.
func (s *ArchiveStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM archived_positions WHERE withdrawn_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete archive before: %w", err)
	}
	return tag.RowsAffected(), nil
}
