package domain

import (
	"context"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ListOpts controls pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// Normalize clamps the options to sane values.
func (o ListOpts) Normalize() ListOpts {
	if o.Limit <= 0 || o.Limit > 500 {
		o.Limit = 100
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// OptionStore holds the per-token option catalogs. Catalogs are append-only:
// options are never updated or removed, and an option's index is stable for
// the lifetime of the catalog.
type OptionStore interface {
	// Append adds an option to the token's catalog and returns its index.
	Append(ctx context.Context, token common.Address, opt StakeOption) (int, error)
	// Get returns the option at the given index, or ErrIndexOutOfRange.
	Get(ctx context.Context, token common.Address, index int) (StakeOption, error)
	// List returns the full catalog for a token, in append order.
	List(ctx context.Context, token common.Address) ([]StakeOption, error)
}

// PositionStore holds each account's open positions as a dense, per-account
// indexed list.
//
// RemoveAt uses swap-remove: the last position in the account's list is moved
// into the removed slot. Indices are therefore stable only until the next
// removal; a caller holding several indices must re-read after each RemoveAt.
type PositionStore interface {
	// Append adds a position to the account's list and returns its index.
	Append(ctx context.Context, pos StakePosition) (int, error)
	// Get returns the position at the given index, or ErrIndexOutOfRange.
	Get(ctx context.Context, account common.Address, index int) (StakePosition, error)
	// Update replaces the position at the given index.
	Update(ctx context.Context, account common.Address, index int, pos StakePosition) error
	// RemoveAt deletes the position at index via swap-remove and returns
	// the removed position.
	RemoveAt(ctx context.Context, account common.Address, index int) (StakePosition, error)
	// List returns all of an account's positions in index order.
	List(ctx context.Context, account common.Address) ([]StakePosition, error)
	// Count returns the number of open positions for an account.
	Count(ctx context.Context, account common.Address) (int, error)
}

// ReservationStore tracks, per token, how much of custody's balance is
// already promised to existing positions. Reserved amounts are always
// non-negative; a release exceeding the reservation returns
// ErrReservationUnderflow and must be treated as ledger corruption.
type ReservationStore interface {
	Reserve(ctx context.Context, token common.Address, amount *big.Int) error
	Release(ctx context.Context, token common.Address, amount *big.Int) error
	Reserved(ctx context.Context, token common.Address) (*big.Int, error)
}

// AuthorityStore holds the access-control state: the set of stake owners per
// token and the per-token pause flags. The service owner is configured, not
// stored.
type AuthorityStore interface {
	AddStakeOwner(ctx context.Context, token, owner common.Address) error
	RemoveStakeOwner(ctx context.Context, token, owner common.Address) error
	IsStakeOwner(ctx context.Context, token, owner common.Address) (bool, error)
	SetPaused(ctx context.Context, token common.Address, paused bool) error
	IsPaused(ctx context.Context, token common.Address) (bool, error)
}

// AuditEntry is one row of the append-only audit log.
type AuditEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Actor     common.Address `json:"actor"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// AuditStore records every mutation for later inspection and archival.
type AuditStore interface {
	Log(ctx context.Context, entry AuditEntry) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	// ListBefore returns entries older than the cutoff, oldest first.
	ListBefore(ctx context.Context, cutoff time.Time, opts ListOpts) ([]AuditEntry, error)
	// DeleteBefore removes entries older than the cutoff and reports how
	// many were deleted.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ArchiveStore keeps withdrawn positions for the monthly export.
type ArchiveStore interface {
	Add(ctx context.Context, pos ArchivedPosition) error
	ListBefore(ctx context.Context, cutoff time.Time, opts ListOpts) ([]ArchivedPosition, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads blobs to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves blobs and their metadata from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// BlobDeleter removes blobs from object storage.
type BlobDeleter interface {
	Delete(ctx context.Context, path string) error
}
