package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

func TestManager_GetDefaultsToSharedSession(t *testing.T) {
	m := newTestManager(&mockLLM{}, nil, 0)

	a := m.Get(context.Background(), "")
	b := m.Get(context.Background(), common.DefaultSessionID)

	assert.Same(t, a, b)
	assert.Equal(t, common.DefaultSessionID, a.ID())
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	m := newTestManager(&mockLLM{}, nil, 0)
	ctx := context.Background()

	_, err := m.Get(ctx, "a").Send(ctx, "hello")
	require.NoError(t, err)

	assert.Len(t, m.Get(ctx, "a").History(), 2)
	assert.Empty(t, m.Get(ctx, "b").History())
}

func TestManager_NewCreatesFreshSession(t *testing.T) {
	m := newTestManager(&mockLLM{}, nil, 0)

	session := m.New(context.Background())
	assert.True(t, strings.HasPrefix(session.ID(), "ses_"))
	assert.NotEqual(t, session.ID(), m.New(context.Background()).ID())
}

func TestManager_RestoresFromStorage(t *testing.T) {
	storage := newMockSessionStorage()
	ctx := context.Background()

	first := newTestManager(&mockLLM{}, storage, 0)
	_, err := first.Get(ctx, "persisted").Send(ctx, "remember me")
	require.NoError(t, err)

	// A new manager simulates a restart
	second := newTestManager(&mockLLM{}, storage, 0)
	history := second.Get(ctx, "persisted").History()
	require.Len(t, history, 2)
	assert.Equal(t, "remember me", history[0].Content)
}

func TestManager_Reset(t *testing.T) {
	storage := newMockSessionStorage()
	m := newTestManager(&mockLLM{}, storage, 0)
	ctx := context.Background()

	_, err := m.Get(ctx, "s1").Send(ctx, "hello")
	require.NoError(t, err)

	assert.True(t, m.Reset(ctx, "s1"))
	assert.Empty(t, m.Get(ctx, "s1").History())
	assert.Empty(t, storage.sessions["s1"].Turns)

	assert.False(t, m.Reset(ctx, "missing"))
}

func TestManager_DeleteAndList(t *testing.T) {
	storage := newMockSessionStorage()
	m := newTestManager(&mockLLM{}, storage, 0)
	ctx := context.Background()

	_, err := m.Get(ctx, "a").Send(ctx, "hello")
	require.NoError(t, err)
	_, err = m.Get(ctx, "b").Send(ctx, "hello")
	require.NoError(t, err)

	sessions, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	require.NoError(t, m.Delete(ctx, "a"))
	_, ok := m.Lookup(ctx, "a")
	assert.False(t, ok)

	sessions, err = m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestManager_PersistDisabled(t *testing.T) {
	storage := newMockSessionStorage()
	m := NewManager(&mockLLM{}, storage, &common.SessionConfig{Persist: false}, arbor.NewLogger())
	ctx := context.Background()

	_, err := m.Get(ctx, "s1").Send(ctx, "hello")
	require.NoError(t, err)
	assert.Empty(t, storage.sessions)
}

func TestManager_DeleteWaitsForInFlightSend(t *testing.T) {
	storage := newMockSessionStorage()
	entered := make(chan struct{})
	release := make(chan struct{})
	llm := &mockLLM{replyFn: func(req *interfaces.ContentRequest) (string, error) {
		close(entered)
		<-release
		return "late reply", nil
	}}
	m := newTestManager(llm, storage, 0)
	ctx := context.Background()

	sendDone := make(chan error, 1)
	go func() {
		_, err := m.Get(ctx, "victim").Send(ctx, "hello")
		sendDone <- err
	}()
	<-entered

	deleteDone := make(chan error, 1)
	go func() { deleteDone <- m.Delete(ctx, "victim") }()

	// Give Delete time to block on the session before the model answers
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, <-sendDone)
	require.NoError(t, <-deleteDone)

	_, err := storage.GetSession(ctx, "victim")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	sessions, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	assert.Empty(t, m.Get(ctx, "victim").History())
}

func TestManager_DeletedHandleDoesNotPersist(t *testing.T) {
	storage := newMockSessionStorage()
	m := newTestManager(&mockLLM{}, storage, 0)
	ctx := context.Background()

	stale := m.Get(ctx, "gone")
	_, err := stale.Send(ctx, "first")
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "gone"))

	_, err = stale.Send(ctx, "second")
	require.NoError(t, err)
	stale.Reset(ctx)

	_, err = storage.GetSession(ctx, "gone")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestManager_EvictsLeastRecentlyUsedOverCap(t *testing.T) {
	storage := newMockSessionStorage()
	m := NewManager(&mockLLM{}, storage, &common.SessionConfig{Persist: true, MaxLive: 2}, arbor.NewLogger())
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := m.Get(ctx, "old").Send(ctx, "hello")
	require.NoError(t, err)
	m.Get(ctx, "old").updatedAt = base
	m.Get(ctx, "recent").updatedAt = base.Add(time.Hour)

	m.Get(ctx, "new")

	m.mu.Lock()
	_, oldLive := m.sessions["old"]
	_, recentLive := m.sessions["recent"]
	live := len(m.sessions)
	m.mu.Unlock()

	assert.Equal(t, 2, live)
	assert.False(t, oldLive)
	assert.True(t, recentLive)

	// The evicted session comes back from storage
	assert.Len(t, m.Get(ctx, "old").History(), 2)
}

func TestManager_EvictionSkipsBusySessions(t *testing.T) {
	m := NewManager(&mockLLM{}, nil, &common.SessionConfig{MaxLive: 1}, arbor.NewLogger())
	ctx := context.Background()

	busy := m.Get(ctx, "busy")
	busy.mu.Lock()
	m.Get(ctx, "other")
	busy.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Same(t, busy, m.sessions["busy"])
}

func TestManager_SweepPurgesIdleSessions(t *testing.T) {
	storage := newMockSessionStorage()
	m := NewManager(&mockLLM{}, storage, &common.SessionConfig{Persist: true, IdleTTL: "24h"}, arbor.NewLogger())
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	for _, id := range []string{"idle", "active", "busy"} {
		_, err := m.Get(ctx, id).Send(ctx, "hello")
		require.NoError(t, err)
	}
	m.Get(ctx, "idle").updatedAt = now.Add(-48 * time.Hour)
	m.Get(ctx, "active").updatedAt = now.Add(-time.Hour)
	busy := m.Get(ctx, "busy")
	busy.updatedAt = now.Add(-48 * time.Hour)
	storage.sessions["stored-only"] = &models.Session{ID: "stored-only", UpdatedAt: now.Add(-72 * time.Hour)}

	busy.mu.Lock()
	require.NoError(t, m.Sweep(ctx))
	busy.mu.Unlock()

	_, err := storage.GetSession(ctx, "idle")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	_, err = storage.GetSession(ctx, "stored-only")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	_, err = storage.GetSession(ctx, "active")
	assert.NoError(t, err)

	m.mu.Lock()
	_, idleLive := m.sessions["idle"]
	_, busyLive := m.sessions["busy"]
	m.mu.Unlock()
	assert.False(t, idleLive)
	assert.True(t, busyLive)

	// The next sweep catches the session once it is free
	require.NoError(t, m.Sweep(ctx))
	_, err = storage.GetSession(ctx, "busy")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestManager_SweepDisabledWithoutTTL(t *testing.T) {
	storage := newMockSessionStorage()
	m := newTestManager(&mockLLM{}, storage, 0)
	ctx := context.Background()

	_, err := m.Get(ctx, "s1").Send(ctx, "hello")
	require.NoError(t, err)
	m.Get(ctx, "s1").updatedAt = time.Time{}

	require.NoError(t, m.Sweep(ctx))
	assert.Contains(t, storage.sessions, "s1")
}
