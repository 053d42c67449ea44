package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

func openTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSessionStorage_RoundTrip(t *testing.T) {
	storage := NewSessionStorage(openTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	session := &models.Session{
		ID: "ses_1",
		Turns: []models.Turn{
			{Role: models.RoleUser, Content: "Tesla", At: now},
			{Role: models.RoleAssistant, Content: "TSLA", At: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, storage.SaveSession(ctx, session))

	loaded, err := storage.GetSession(ctx, "ses_1")
	require.NoError(t, err)
	require.Len(t, loaded.Turns, 2)
	assert.Equal(t, "TSLA", loaded.Turns[1].Content)

	session.Turns = nil
	require.NoError(t, storage.SaveSession(ctx, session))
	loaded, err = storage.GetSession(ctx, "ses_1")
	require.NoError(t, err)
	assert.Empty(t, loaded.Turns)
}

func TestSessionStorage_RequiresID(t *testing.T) {
	storage := NewSessionStorage(openTestDB(t), arbor.NewLogger())
	assert.Error(t, storage.SaveSession(context.Background(), &models.Session{}))
}

func TestSessionStorage_NotFound(t *testing.T) {
	storage := NewSessionStorage(openTestDB(t), arbor.NewLogger())

	_, err := storage.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.ErrorIs(t, storage.DeleteSession(context.Background(), "missing"), interfaces.ErrNotFound)
}

func TestSessionStorage_ListNewestFirst(t *testing.T) {
	storage := NewSessionStorage(openTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, storage.SaveSession(ctx, &models.Session{ID: "old", CreatedAt: base, UpdatedAt: base}))
	require.NoError(t, storage.SaveSession(ctx, &models.Session{ID: "new", CreatedAt: base, UpdatedAt: base.Add(2 * time.Hour)}))
	require.NoError(t, storage.SaveSession(ctx, &models.Session{ID: "mid", CreatedAt: base, UpdatedAt: base.Add(time.Hour)}))

	sessions, err := storage.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "new", sessions[0].ID)
	assert.Equal(t, "mid", sessions[1].ID)
	assert.Equal(t, "old", sessions[2].ID)

	require.NoError(t, storage.DeleteSession(ctx, "mid"))
	sessions, err = storage.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestSnapshotStorage_Replace(t *testing.T) {
	storage := NewSnapshotStorage(openTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	day1 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	require.NoError(t, storage.ReplaceTopTerms(ctx, []models.TopTerm{
		{Day: day2, Term: "eclipse", Rank: 2},
		{Day: day1, Term: "oscars", Rank: 1},
		{Day: day2, Term: "march madness", Rank: 1},
	}))

	terms, err := storage.GetTopTerms(ctx)
	require.NoError(t, err)
	require.Len(t, terms, 3)
	assert.Equal(t, "oscars", terms[0].Term)
	assert.Equal(t, "march madness", terms[1].Term)
	assert.Equal(t, "eclipse", terms[2].Term)

	require.NoError(t, storage.ReplaceTopTerms(ctx, []models.TopTerm{{Day: day2, Term: "only", Rank: 1}}))
	terms, err = storage.GetTopTerms(ctx)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "only", terms[0].Term)
}

func TestTopTermID(t *testing.T) {
	id := TopTermID(models.TopTerm{Day: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Term: "oscars", Rank: 7})
	assert.Equal(t, "2025-03-01|007|oscars", id)
}
