package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/lima-cli/internal/core/domain"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_RecordAndList(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, domain.Bundle{ID: "b1", Files: []string{"a.png", "b.stl"}, FailedFiles: []string{"../x"}}))
	require.NoError(t, j.Record(ctx, domain.Bundle{ID: "b2", Files: []string{"c.obj"}}))

	all, err := j.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b1", all[0].ID)
	assert.Equal(t, []string{"a.png", "b.stl"}, all[0].Files)
	assert.Equal(t, []string{"../x"}, all[0].FailedFiles)
	assert.Equal(t, domain.BundleStaged, all[0].Status)
	assert.Empty(t, all[1].FailedFiles)
}

func TestJournal_StatusTransitions(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, domain.Bundle{ID: "b1", Files: []string{"a.png"}}))
	require.NoError(t, j.Record(ctx, domain.Bundle{ID: "b2", Files: []string{"b.png"}}))

	require.NoError(t, j.MarkConsumed(ctx, "b1", "p7"))
	require.NoError(t, j.MarkDiscarded(ctx, "b2"))

	consumed, err := j.List(ctx, domain.BundleConsumed)
	require.NoError(t, err)
	require.Len(t, consumed, 1)
	assert.Equal(t, "p7", consumed[0].ProjectID)

	discarded, err := j.List(ctx, domain.BundleDiscarded)
	require.NoError(t, err)
	require.Len(t, discarded, 1)
	assert.Equal(t, "b2", discarded[0].ID)

	assert.Error(t, j.MarkConsumed(ctx, "missing", "p1"))
}

func TestJournal_Staged(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return base }
	require.NoError(t, j.Record(ctx, domain.Bundle{ID: "old", Files: []string{"a.png"}}))

	j.now = func() time.Time { return base.Add(2 * time.Hour) }
	require.NoError(t, j.Record(ctx, domain.Bundle{ID: "new", Files: []string{"b.png"}}))

	stale, err := j.Staged(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].ID)

	all, err := j.Staged(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
