package datastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/mutation"
)

func openTestAudit(t *testing.T) *AuditStore {
	t.Helper()
	s, err := OpenAudit(filepath.Join(t.TempDir(), "db", "audit.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndListAppends(t *testing.T) {
	s := openTestAudit(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordAppend(ctx, mutation.Event{
		Source: mutation.SourceManual, Rows: 1, SessionID: "a", StorePath: "enc.csv", CreatedAt: base,
	}))
	require.NoError(t, s.RecordAppend(ctx, mutation.Event{
		Source: mutation.SourceUpload, Rows: 12, SessionID: "b", StorePath: "enc.csv", CreatedAt: base.Add(time.Hour),
	}))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "upload", got[0].Source)
	assert.Equal(t, 12, got[0].Rows)
	assert.Equal(t, "b", got[0].SessionID)
	assert.Equal(t, "manual", got[1].Source)
	assert.True(t, got[1].CreatedAt.Equal(base))
}

func TestRecentLimit(t *testing.T) {
	s := openTestAudit(t)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, s.RecordAppend(ctx, mutation.Event{
			Source:    mutation.SourceManual,
			Rows:      i + 1,
			CreatedAt: time.Unix(int64(1_700_000_000+i), 0).UTC(),
		}))
	}

	got, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 5, got[0].Rows)
}

func TestAuditStoreSatisfiesAuditor(t *testing.T) {
	var _ mutation.Auditor = (*AuditStore)(nil)
}

func TestRecordAfterCloseIsDatabaseError(t *testing.T) {
	s, err := OpenAudit(filepath.Join(t.TempDir(), "audit.db"), 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.RecordAppend(context.Background(), mutation.Event{Source: mutation.SourceManual, Rows: 1})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}
