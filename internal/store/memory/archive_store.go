package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// ArchiveStore keeps withdrawn positions in memory until they are exported.
type ArchiveStore struct {
	mu        sync.RWMutex
	positions []domain.ArchivedPosition
}

var _ domain.ArchiveStore = (*ArchiveStore)(nil)

// NewArchiveStore creates an empty ArchiveStore.
func NewArchiveStore() *ArchiveStore {
	return &ArchiveStore{}
}

// Add records a withdrawn position.
func (s *ArchiveStore) Add(_ context.Context, pos domain.ArchivedPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append(s.positions, pos)
	return nil
}

// ListBefore returns positions withdrawn before cutoff, oldest first.
func (s *ArchiveStore) ListBefore(_ context.Context, cutoff time.Time, opts domain.ListOpts) ([]domain.ArchivedPosition, error) {
	opts = opts.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ArchivedPosition
	skipped := 0
	for _, p := range s.positions {
		if !p.WithdrawnAt.Before(cutoff) {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		out = append(out, p)
		if len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

// DeleteBefore removes positions withdrawn before cutoff.
func (s *ArchiveStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.positions[:0]
	var deleted int64
	for _, p := range s.positions {
		if p.WithdrawnAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, p)
	}
	s.positions = kept
	return deleted, nil
}
