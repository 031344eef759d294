package s3blob

import (
	"bytes"
	"context"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/stakevault/internal/domain"
	"github.com/alanyoungcy/stakevault/internal/store/memory"
)

// captureWriter records uploads in memory.
type captureWriter struct {
	objects map[string][]byte
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{objects: make(map[string][]byte)}
}

func (w *captureWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.objects[path] = buf
	return nil
}

func (w *captureWriter) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return w.Put(ctx, path, data, "")
}

func TestArchiverExportsAndPrunes(t *testing.T) {
	ctx := context.Background()
	writer := newCaptureWriter()
	audit := memory.NewAuditStore()
	archive := memory.NewArchiveStore()

	old := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	fresh := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, audit.Log(ctx, domain.AuditEntry{ID: "a1", Timestamp: old, Action: "stake"}))
	require.NoError(t, audit.Log(ctx, domain.AuditEntry{ID: "a2", Timestamp: fresh, Action: "withdraw"}))
	require.NoError(t, archive.Add(ctx, domain.ArchivedPosition{
		WithdrawnAt: old,
		Fee:         big.NewInt(10),
		RewardsPaid: big.NewInt(20),
	}))

	a := NewArchiver(writer, audit, archive, nil)
	require.NoError(t, a.Run(ctx, cutoff))

	// One JSONL object per kind, partitioned by the month of the records.
	auditBlob, ok := writer.objects["archive/audit/2025-01.jsonl"]
	require.True(t, ok)
	assert.Equal(t, 1, bytes.Count(auditBlob, []byte("\n")))
	assert.Contains(t, string(auditBlob), `"a1"`)

	posBlob, ok := writer.objects["archive/positions/2025-01.jsonl"]
	require.True(t, ok)
	assert.Contains(t, string(posBlob), `"fee":10`)

	// Old records pruned, fresh ones kept. The archive run itself added a
	// fresh audit entry per kind.
	remaining, err := audit.ListBefore(ctx, cutoff, domain.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, remaining)

	kept, err := audit.List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	assert.NotEmpty(t, kept)

	positions, err := archive.ListBefore(ctx, fresh, domain.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestArchiverSplitsExportsByMonth(t *testing.T) {
	ctx := context.Background()
	writer := newCaptureWriter()
	audit := memory.NewAuditStore()

	december := time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC)
	january := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, audit.Log(ctx, domain.AuditEntry{ID: "dec", Timestamp: december, Action: "stake"}))
	require.NoError(t, audit.Log(ctx, domain.AuditEntry{ID: "jan", Timestamp: january, Action: "withdraw"}))

	a := NewArchiver(writer, audit, memory.NewArchiveStore(), nil)
	exported, err := a.ArchiveAudit(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), exported)

	decBlob, ok := writer.objects["archive/audit/2024-12.jsonl"]
	require.True(t, ok)
	assert.Contains(t, string(decBlob), `"dec"`)
	assert.NotContains(t, string(decBlob), `"jan"`)

	janBlob, ok := writer.objects["archive/audit/2025-01.jsonl"]
	require.True(t, ok)
	assert.Contains(t, string(janBlob), `"jan"`)
}

func TestArchiverSkipsEmptyExport(t *testing.T) {
	ctx := context.Background()
	writer := newCaptureWriter()
	a := NewArchiver(writer, memory.NewAuditStore(), memory.NewArchiveStore(), nil)

	require.NoError(t, a.Run(ctx, time.Now()))
	assert.Empty(t, writer.objects)
}
