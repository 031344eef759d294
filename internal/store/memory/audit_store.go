package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// AuditStore keeps the audit log in memory, newest first for List.
type AuditStore struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

var _ domain.AuditStore = (*AuditStore)(nil)

// NewAuditStore creates an empty AuditStore.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Log appends an entry.
func (s *AuditStore) Log(_ context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// List returns entries newest first, paginated.
func (s *AuditStore) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	opts = opts.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AuditEntry, 0, opts.Limit)
	for i := len(s.entries) - 1 - opts.Offset; i >= 0 && len(out) < opts.Limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// ListBefore returns entries older than cutoff, oldest first.
func (s *AuditStore) ListBefore(_ context.Context, cutoff time.Time, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	opts = opts.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AuditEntry
	skipped := 0
	for _, e := range s.entries {
		if !e.Timestamp.Before(cutoff) {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		out = append(out, e)
		if len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

// DeleteBefore removes entries older than cutoff.
func (s *AuditStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var deleted int64
	for _, e := range s.entries {
		if e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}
