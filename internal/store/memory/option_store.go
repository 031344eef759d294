package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// OptionStore is an in-memory, append-only option catalog keyed by token.
type OptionStore struct {
	mu       sync.RWMutex
	catalogs map[common.Address][]domain.StakeOption
}

var _ domain.OptionStore = (*OptionStore)(nil)

// NewOptionStore creates an empty OptionStore.
func NewOptionStore() *OptionStore {
	return &OptionStore{catalogs: make(map[common.Address][]domain.StakeOption)}
}

// Append adds an option to the token's catalog and returns its index.
func (s *OptionStore) Append(_ context.Context, token common.Address, opt domain.StakeOption) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogs[token] = append(s.catalogs[token], opt)
	return len(s.catalogs[token]) - 1, nil
}

// Get returns the option at index, or ErrIndexOutOfRange.
func (s *OptionStore) Get(_ context.Context, token common.Address, index int) (domain.StakeOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	catalog := s.catalogs[token]
	if index < 0 || index >= len(catalog) {
		return domain.StakeOption{}, fmt.Errorf("memory: option %d of %d: %w", index, len(catalog), domain.ErrIndexOutOfRange)
	}
	return catalog[index], nil
}

// List returns the token's catalog in append order.
func (s *OptionStore) List(_ context.Context, token common.Address) ([]domain.StakeOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StakeOption, len(s.catalogs[token]))
	copy(out, s.catalogs[token])
	return out, nil
}
