package memory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// AuthorityStore keeps stake owners and pause flags in memory.
type AuthorityStore struct {
	mu     sync.RWMutex
	owners map[common.Address]map[common.Address]struct{}
	paused map[common.Address]bool
}

var _ domain.AuthorityStore = (*AuthorityStore)(nil)

// NewAuthorityStore creates an empty AuthorityStore.
func NewAuthorityStore() *AuthorityStore {
	return &AuthorityStore{
		owners: make(map[common.Address]map[common.Address]struct{}),
		paused: make(map[common.Address]bool),
	}
}

// AddStakeOwner grants owner capability over token. Idempotent.
func (s *AuthorityStore) AddStakeOwner(_ context.Context, token, owner common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owners[token] == nil {
		s.owners[token] = make(map[common.Address]struct{})
	}
	s.owners[token][owner] = struct{}{}
	return nil
}

// RemoveStakeOwner revokes owner capability over token. Idempotent.
func (s *AuthorityStore) RemoveStakeOwner(_ context.Context, token, owner common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.owners[token], owner)
	return nil
}

// IsStakeOwner reports whether owner holds capability over token.
func (s *AuthorityStore) IsStakeOwner(_ context.Context, token, owner common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.owners[token][owner]
	return ok, nil
}

// SetPaused sets the token's pause flag.
func (s *AuthorityStore) SetPaused(_ context.Context, token common.Address, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused[token] = paused
	return nil
}

// IsPaused reports the token's pause flag.
func (s *AuthorityStore) IsPaused(_ context.Context, token common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused[token], nil
}
