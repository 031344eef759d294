package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// AuthorityStore implements domain.AuthorityStore over PostgreSQL.
type AuthorityStore struct {
	pool *pgxpool.Pool
}

var _ domain.AuthorityStore = (*AuthorityStore)(nil)

// NewAuthorityStore creates an AuthorityStore backed by the given client.
func NewAuthorityStore(c *Client) *AuthorityStore {
	return &AuthorityStore{pool: c.Pool()}
}

// AddStakeOwner grants owner stake-owner rights over the token. Idempotent.
func (s *AuthorityStore) AddStakeOwner(ctx context.Context, token, owner common.Address) error {
	const q = `
		INSERT INTO stake_owners (stake_token, owner)
		VALUES ($1, $2)
		ON CONFLICT (stake_token, owner) DO NOTHING`

	if _, err := s.pool.Exec(ctx, q, addrKey(token), addrKey(owner)); err != nil {
		return fmt.Errorf("postgres: add stake owner: %w", err)
	}
	return nil
}

// RemoveStakeOwner revokes owner's stake-owner rights over the token.
func (s *AuthorityStore) RemoveStakeOwner(ctx context.Context, token, owner common.Address) error {
	const q = `DELETE FROM stake_owners WHERE stake_token = $1 AND owner = $2`

	if _, err := s.pool.Exec(ctx, q, addrKey(token), addrKey(owner)); err != nil {
		return fmt.Errorf("postgres: remove stake owner: %w", err)
	}
	return nil
}

// IsStakeOwner reports whether owner holds stake-owner rights for the token.
func (s *AuthorityStore) IsStakeOwner(ctx context.Context, token, owner common.Address) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM stake_owners WHERE stake_token = $1 AND owner = $2)`

	var exists bool
	if err := s.pool.QueryRow(ctx, q, addrKey(token), addrKey(owner)).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: is stake owner: %w", err)
	}
	return exists, nil
}

// SetPaused sets the token's pause flag.
func (s *AuthorityStore) SetPaused(ctx context.Context, token common.Address, paused bool) error {
	const q = `
		INSERT INTO pause_flags (stake_token, paused, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (stake_token) DO UPDATE SET paused = EXCLUDED.paused, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, q, addrKey(token), paused); err != nil {
		return fmt.Errorf("postgres: set paused: %w", err)
	}
	return nil
}

// IsPaused reports the token's pause flag, false if never set.
func (s *AuthorityStore) IsPaused(ctx context.Context, token common.Address) (bool, error) {
	var paused bool
	err := s.pool.QueryRow(ctx,
		`SELECT paused FROM pause_flags WHERE stake_token = $1`, addrKey(token),
	).Scan(&paused)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("postgres: is paused: %w", err)
	}
	return paused, nil
}
