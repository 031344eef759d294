package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// ReservationStore implements domain.ReservationStore over PostgreSQL.
// One row per token; the reserved column carries a CHECK (reserved >= 0)
// as a second line of defense behind the guarded UPDATE in Release.
type ReservationStore struct {
	pool *pgxpool.Pool
}

var _ domain.ReservationStore = (*ReservationStore)(nil)

// NewReservationStore creates a ReservationStore backed by the given client.
func NewReservationStore(c *Client) *ReservationStore {
	return &ReservationStore{pool: c.Pool()}
}

// Reserve adds amount to the token's reservation.
func (s *ReservationStore) Reserve(ctx context.Context, token common.Address, amount *big.Int) error {
	const q = `
		INSERT INTO reservations (token, reserved)
		VALUES ($1, $2::numeric)
		ON CONFLICT (token) DO UPDATE SET reserved = reservations.reserved + EXCLUDED.reserved`

	if _, err := s.pool.Exec(ctx, q, addrKey(token), amount.String()); err != nil {
		return fmt.Errorf("postgres: reserve: %w", err)
	}
	return nil
}

// Release subtracts amount from the token's reservation. Releasing more than
// is reserved returns ErrReservationUnderflow.
func (s *ReservationStore) Release(ctx context.Context, token common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}

	const q = `
		UPDATE reservations
		SET reserved = reserved - $2::numeric
		WHERE token = $1 AND reserved >= $2::numeric`

	tag, err := s.pool.Exec(ctx, q, addrKey(token), amount.String())
	if err != nil {
		return fmt.Errorf("postgres: release: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationUnderflow
	}
	return nil
}

// Reserved returns the token's current reservation, zero if none exists.
func (s *ReservationStore) Reserved(ctx context.Context, token common.Address) (*big.Int, error) {
	var reserved string
	err := s.pool.QueryRow(ctx,
		`SELECT reserved::text FROM reservations WHERE token = $1`, addrKey(token),
	).Scan(&reserved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return big.NewInt(0), nil
		}
		return nil, fmt.Errorf("postgres: reserved: %w", err)
	}
	return parseBig(reserved)
}
