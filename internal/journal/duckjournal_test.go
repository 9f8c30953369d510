// duckjournal_test.go - Tests for the DuckDB transition journal
package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/file-loader/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestJournal(t *testing.T) *DuckJournal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func event(session string, kind models.TransitionKind, slot int) models.TransitionEvent {
	return models.TransitionEvent{
		SessionID: session,
		Kind:      kind,
		SlotIndex: slot,
		Category:  "ID",
		FileName:  "passport.png",
		FileSize:  2048,
		Remaining: 1,
		Timestamp: time.Now(),
	}
}

func TestDuckJournal_RecordAndHistory(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, event("s1", models.TransitionFileOffered, 0)))
	require.NoError(t, j.Record(ctx, event("s1", models.TransitionSlotBound, 0)))
	require.NoError(t, j.Record(ctx, event("s2", models.TransitionSlotBound, 0)))
	require.NoError(t, j.Record(ctx, event("s1", models.TransitionSlotCleared, 0)))

	history, err := j.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.TransitionFileOffered, history[0].Kind)
	assert.Equal(t, models.TransitionSlotBound, history[1].Kind)
	assert.Equal(t, models.TransitionSlotCleared, history[2].Kind)
	assert.Equal(t, "passport.png", history[0].FileName)
	assert.Equal(t, int64(2048), history[0].FileSize)
	assert.Equal(t, "ID", history[0].Category)

	limited, err := j.History(ctx, "s1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestDuckJournal_EmptyOptionalFields(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, models.TransitionEvent{
		SessionID: "s1",
		Kind:      models.TransitionCategoryExhausted,
		Timestamp: time.Now(),
	}))

	history, err := j.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Empty(t, history[0].FileName)
}

func TestDuckJournal_UnknownSession(t *testing.T) {
	j := createTestJournal(t)

	history, err := j.History(context.Background(), "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDuckJournal_CountByKind(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, event("s1", models.TransitionSlotBound, 0)))
	require.NoError(t, j.Record(ctx, event("s2", models.TransitionSlotBound, 0)))
	require.NoError(t, j.Record(ctx, event("s2", models.TransitionValidationFailed, 1)))

	counts, err := j.CountByKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.TransitionSlotBound])
	assert.Equal(t, 1, counts[models.TransitionValidationFailed])
}

func TestDuckJournal_DeleteSession(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, event("s1", models.TransitionSlotBound, 0)))
	require.NoError(t, j.Record(ctx, event("s2", models.TransitionSlotBound, 0)))
	require.NoError(t, j.DeleteSession(ctx, "s1"))

	h1, _ := j.History(ctx, "s1", 0)
	h2, _ := j.History(ctx, "s2", 0)
	assert.Empty(t, h1)
	assert.Len(t, h2, 1)
}

func TestDuckJournal_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.duckdb")
	ctx := context.Background()

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, event("s1", models.TransitionSlotBound, 0)))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	history, err := j.History(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestOpen_InMemory(t *testing.T) {
	j, err := Open("")
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Record(context.Background(), event("s1", models.TransitionSlotBound, 0)))
}
