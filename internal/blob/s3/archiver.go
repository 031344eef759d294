package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// archivePageSize bounds how many records are pulled per store query.
const archivePageSize = 1000

// Archiver exports old audit entries and withdrawn positions to object
// storage as JSONL, then deletes them from the primary store. Exports are
// partitioned by the year-month of the records themselves, one object per
// month.
type Archiver struct {
	writer  domain.BlobWriter
	audit   domain.AuditStore
	archive domain.ArchiveStore
	logger  *slog.Logger
}

// NewArchiver creates an Archiver over the given writer and stores.
func NewArchiver(writer domain.BlobWriter, audit domain.AuditStore, archive domain.ArchiveStore, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		writer:  writer,
		audit:   audit,
		archive: archive,
		logger:  logger.With("component", "archiver"),
	}
}

// Run exports everything older than cutoff: audit entries and withdrawn
// positions. Upload happens before deletion so a failed upload never loses
// records.
//
// The cutoff is snapped down to a month boundary, so only complete months
// are exported and each month object is written exactly once; a second run
// in the same month finds everything before the boundary already pruned.
func (a *Archiver) Run(ctx context.Context, cutoff time.Time) error {
	audits, err := a.ArchiveAudit(ctx, cutoff)
	if err != nil {
		return err
	}
	positions, err := a.ArchiveWithdrawnPositions(ctx, cutoff)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "archive run complete",
		"cutoff", cutoff, "audit_entries", audits, "positions", positions)
	return nil
}

// ArchiveAudit exports audit entries older than cutoff to
// archive/audit/YYYY-MM.jsonl and deletes them. Returns the exported count.
func (a *Archiver) ArchiveAudit(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = monthOf(cutoff)

	var all []domain.AuditEntry
	for offset := 0; ; offset += archivePageSize {
		page, err := a.audit.ListBefore(ctx, cutoff, domain.ListOpts{Limit: archivePageSize, Offset: offset})
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
		}
		all = append(all, page...)
		if len(page) < archivePageSize {
			break
		}
	}
	if len(all) == 0 {
		return 0, nil
	}

	months := make(map[time.Time][]domain.AuditEntry)
	for _, entry := range all {
		m := monthOf(entry.Timestamp)
		months[m] = append(months[m], entry)
	}
	for month, entries := range months {
		buf, err := marshalJSONL(entries)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive audit marshal: %w", err)
		}
		path := archivePath("audit", month)
		if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return 0, fmt.Errorf("s3blob: archive audit upload: %w", err)
		}
		a.logEvent(ctx, "archive.audit", path, int64(len(entries)), cutoff)
	}

	if _, err := a.audit.DeleteBefore(ctx, cutoff); err != nil {
		return int64(len(all)), fmt.Errorf("s3blob: archive audit prune: %w", err)
	}
	return int64(len(all)), nil
}

// ArchiveWithdrawnPositions exports withdrawn positions older than cutoff to
// archive/positions/YYYY-MM.jsonl and deletes them. Returns the exported
// count.
func (a *Archiver) ArchiveWithdrawnPositions(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = monthOf(cutoff)

	var all []domain.ArchivedPosition
	for offset := 0; ; offset += archivePageSize {
		page, err := a.archive.ListBefore(ctx, cutoff, domain.ListOpts{Limit: archivePageSize, Offset: offset})
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive positions query: %w", err)
		}
		all = append(all, page...)
		if len(page) < archivePageSize {
			break
		}
	}
	if len(all) == 0 {
		return 0, nil
	}

	months := make(map[time.Time][]domain.ArchivedPosition)
	for _, pos := range all {
		m := monthOf(pos.WithdrawnAt)
		months[m] = append(months[m], pos)
	}
	for month, positions := range months {
		buf, err := marshalJSONL(positions)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive positions marshal: %w", err)
		}
		path := archivePath("positions", month)
		if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return 0, fmt.Errorf("s3blob: archive positions upload: %w", err)
		}
		a.logEvent(ctx, "archive.positions", path, int64(len(positions)), cutoff)
	}

	if _, err := a.archive.DeleteBefore(ctx, cutoff); err != nil {
		return int64(len(all)), fmt.Errorf("s3blob: archive positions prune: %w", err)
	}
	return int64(len(all)), nil
}

// logEvent records an archival run in the audit log. Failures are logged,
// not returned: the export already succeeded.
func (a *Archiver) logEvent(ctx context.Context, action, path string, count int64, cutoff time.Time) {
	entry := domain.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Detail: map[string]any{
			"path":   path,
			"count":  count,
			"cutoff": cutoff.Format(time.RFC3339),
		},
	}
	if err := a.audit.Log(ctx, entry); err != nil {
		a.logger.WarnContext(ctx, "recording archive run failed", "action", action, "error", err)
	}
}

// archivePath builds the S3 key for one month of archived records.
//
//	archive/audit/2025-01.jsonl
//	archive/positions/2025-01.jsonl
func archivePath(kind string, month time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, month.Format("2006-01"))
}

// monthOf truncates a timestamp to the first instant of its UTC month.
func monthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
