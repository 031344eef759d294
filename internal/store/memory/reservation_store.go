package memory

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// ReservationStore tracks per-token reserved amounts in memory.
type ReservationStore struct {
	mu       sync.RWMutex
	reserved map[common.Address]*big.Int
}

var _ domain.ReservationStore = (*ReservationStore)(nil)

// NewReservationStore creates an empty ReservationStore.
func NewReservationStore() *ReservationStore {
	return &ReservationStore{reserved: make(map[common.Address]*big.Int)}
}

// Reserve increases the token's reserved amount.
func (s *ReservationStore) Reserve(_ context.Context, token common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("memory: reserve: %w", domain.ErrZeroAmount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reserved[token]
	if !ok {
		cur = new(big.Int)
		s.reserved[token] = cur
	}
	cur.Add(cur, amount)
	return nil
}

// Release decreases the token's reserved amount. A release larger than the
// outstanding reservation is ledger corruption, not a clamp.
func (s *ReservationStore) Release(_ context.Context, token common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("memory: release: %w", domain.ErrZeroAmount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reserved[token]
	if !ok || cur.Cmp(amount) < 0 {
		return fmt.Errorf("memory: release %s from %s: %w", amount, cur, domain.ErrReservationUnderflow)
	}
	cur.Sub(cur, amount)
	return nil
}

// Reserved returns the token's current reserved amount.
func (s *ReservationStore) Reserved(_ context.Context, token common.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.reserved[token]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(cur), nil
}
