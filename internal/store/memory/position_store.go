package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// PositionStore keeps each account's positions in a dense slice. RemoveAt is
// swap-remove, so indices are stable only until the next removal.
type PositionStore struct {
	mu       sync.RWMutex
	accounts map[common.Address][]domain.StakePosition
}

var _ domain.PositionStore = (*PositionStore)(nil)

// NewPositionStore creates an empty PositionStore.
func NewPositionStore() *PositionStore {
	return &PositionStore{accounts: make(map[common.Address][]domain.StakePosition)}
}

// Append adds pos to its account's list and returns the new index.
func (s *PositionStore) Append(_ context.Context, pos domain.StakePosition) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[pos.Account] = append(s.accounts[pos.Account], pos.Clone())
	return len(s.accounts[pos.Account]) - 1, nil
}

// Get returns the position at index, or ErrIndexOutOfRange.
func (s *PositionStore) Get(_ context.Context, account common.Address, index int) (domain.StakePosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.accounts[account]
	if index < 0 || index >= len(list) {
		return domain.StakePosition{}, fmt.Errorf("memory: position %d of %d: %w", index, len(list), domain.ErrIndexOutOfRange)
	}
	return list[index].Clone(), nil
}

// Update replaces the position at index.
func (s *PositionStore) Update(_ context.Context, account common.Address, index int, pos domain.StakePosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.accounts[account]
	if index < 0 || index >= len(list) {
		return fmt.Errorf("memory: position %d of %d: %w", index, len(list), domain.ErrIndexOutOfRange)
	}
	list[index] = pos.Clone()
	return nil
}

// RemoveAt deletes the position at index by moving the last position into its
// slot and truncating. Returns the removed position.
func (s *PositionStore) RemoveAt(_ context.Context, account common.Address, index int) (domain.StakePosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.accounts[account]
	if index < 0 || index >= len(list) {
		return domain.StakePosition{}, fmt.Errorf("memory: position %d of %d: %w", index, len(list), domain.ErrIndexOutOfRange)
	}

	removed := list[index]
	last := len(list) - 1
	list[index] = list[last]
	list[last] = domain.StakePosition{}
	s.accounts[account] = list[:last]
	if last == 0 {
		delete(s.accounts, account)
	}
	return removed, nil
}

// List returns all of an account's positions in index order.
func (s *PositionStore) List(_ context.Context, account common.Address) ([]domain.StakePosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StakePosition, 0, len(s.accounts[account]))
	for _, pos := range s.accounts[account] {
		out = append(out, pos.Clone())
	}
	return out, nil
}

// Count returns the number of positions held by account.
func (s *PositionStore) Count(_ context.Context, account common.Address) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts[account]), nil
}
