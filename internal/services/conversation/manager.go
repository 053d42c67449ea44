package conversation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

// Manager owns the live sessions and their persistence.
// Lock order is session.mu before m.mu; code holding m.mu only ever TryLocks a session.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	llm        interfaces.LLMProvider
	storage    interfaces.SessionStorage
	maxHistory int
	maxLive    int
	idleTTL    time.Duration
	logger     arbor.ILogger
	now        func() time.Time
}

// NewManager creates a session manager. storage may be nil for in-memory sessions.
func NewManager(llm interfaces.LLMProvider, storage interfaces.SessionStorage, config *common.SessionConfig, logger arbor.ILogger) *Manager {
	if !config.Persist {
		storage = nil
	}
	return &Manager{
		sessions:   make(map[string]*Session),
		llm:        llm,
		storage:    storage,
		maxHistory: config.MaxHistoryTurns,
		maxLive:    config.MaxLive,
		idleTTL:    common.ParseDurationOr(config.IdleTTL, 0),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the session with id, restoring it from storage or creating it if needed.
// An empty id selects the shared default session.
func (m *Manager) Get(ctx context.Context, id string) *Session {
	if id == "" {
		id = common.DefaultSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[id]; ok {
		return session
	}

	session := newSession(id, m.llm, m.storage, m.maxHistory, m.logger)
	if m.storage != nil {
		stored, err := m.storage.GetSession(ctx, id)
		switch {
		case err == nil:
			session.restore(stored)
			m.logger.Debug().Str("session_id", id).Int("turns", len(stored.Turns)).Msg("Restored session")
		case !errors.Is(err, interfaces.ErrNotFound):
			m.logger.Warn().Err(err).Str("session_id", id).Msg("Failed to load session, starting empty")
		}
	}

	m.sessions[id] = session
	m.evictOverflowLocked(id)
	return session
}

// evictOverflowLocked drops the least recently updated idle sessions from memory
// until at most maxLive remain. With persistence on, evicted sessions are restored
// by the next Get; without it their history is gone. Busy sessions are never evicted.
func (m *Manager) evictOverflowLocked(keep string) {
	if m.maxLive <= 0 {
		return
	}
	for len(m.sessions) > m.maxLive {
		var (
			oldestID string
			oldest   *Session
			oldestAt time.Time
		)
		for id, session := range m.sessions {
			if id == keep || !session.mu.TryLock() {
				continue
			}
			at := session.updatedAt
			session.mu.Unlock()
			if oldest == nil || at.Before(oldestAt) {
				oldestID, oldest, oldestAt = id, session, at
			}
		}
		if oldest == nil {
			return
		}
		delete(m.sessions, oldestID)
		m.logger.Debug().Str("session_id", oldestID).Int("live", len(m.sessions)).Msg("Evicted session from memory")
	}
}

// Lookup returns an existing session without creating one
func (m *Manager) Lookup(ctx context.Context, id string) (*Session, bool) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return session, true
	}

	if m.storage == nil {
		return nil, false
	}
	if _, err := m.storage.GetSession(ctx, id); err != nil {
		return nil, false
	}
	return m.Get(ctx, id), true
}

// New creates a fresh session with a generated id
func (m *Manager) New(ctx context.Context) *Session {
	session := m.Get(ctx, common.NewSessionID())
	session.Reset(ctx)
	m.logger.Info().Str("session_id", session.ID()).Msg("Created session")
	return session
}

// Reset clears the history of session id. Returns false if the session does not exist.
func (m *Manager) Reset(ctx context.Context, id string) bool {
	session, ok := m.Lookup(ctx, id)
	if !ok {
		return false
	}
	session.Reset(ctx)
	m.logger.Info().Str("session_id", id).Msg("Reset session")
	return true
}

// Delete removes session id from memory and storage. A call in flight on the session
// finishes first; neither it nor any later call on a stale handle writes the session back.
func (m *Manager) Delete(ctx context.Context, id string) error {
	for {
		m.mu.Lock()
		session, live := m.sessions[id]
		if !live {
			err := m.deleteStoredLocked(ctx, id)
			m.mu.Unlock()
			return err
		}
		m.mu.Unlock()

		session.mu.Lock()
		session.deleted = true
		m.mu.Lock()
		if m.sessions[id] != session {
			// Evicted or replaced while waiting for the in-flight call
			m.mu.Unlock()
			session.mu.Unlock()
			continue
		}
		delete(m.sessions, id)
		err := m.deleteStoredLocked(ctx, id)
		m.mu.Unlock()
		session.mu.Unlock()
		return err
	}
}

func (m *Manager) deleteStoredLocked(ctx context.Context, id string) error {
	if m.storage == nil {
		return nil
	}
	if err := m.storage.DeleteSession(ctx, id); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Sweep purges sessions idle for longer than the idle TTL, live and stored alike.
// Busy sessions are skipped and picked up by a later sweep.
func (m *Manager) Sweep(ctx context.Context) error {
	if m.idleTTL <= 0 {
		return nil
	}
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for id, session := range m.sessions {
		if !session.mu.TryLock() {
			continue
		}
		if session.updatedAt.Before(cutoff) {
			session.deleted = true
			delete(m.sessions, id)
			if err := m.deleteStoredLocked(ctx, id); err != nil {
				m.logger.Warn().Err(err).Str("session_id", id).Msg("Failed to purge idle session")
			}
			purged++
		}
		session.mu.Unlock()
	}

	if m.storage != nil {
		stored, err := m.storage.ListSessions(ctx)
		if err != nil {
			return fmt.Errorf("list sessions for sweep: %w", err)
		}
		for _, s := range stored {
			if _, live := m.sessions[s.ID]; live || !s.UpdatedAt.Before(cutoff) {
				continue
			}
			if err := m.deleteStoredLocked(ctx, s.ID); err != nil {
				m.logger.Warn().Err(err).Str("session_id", s.ID).Msg("Failed to purge idle session")
				continue
			}
			purged++
		}
	}

	m.logger.Info().Int("purged", purged).Int("live", len(m.sessions)).Dur("idle_ttl", m.idleTTL).Msg("Session sweep complete")
	return nil
}

// List returns the known sessions, live ones taking precedence over stored copies
func (m *Manager) List(ctx context.Context) ([]*models.Session, error) {
	m.mu.Lock()
	live := make(map[string]*Session, len(m.sessions))
	for id, session := range m.sessions {
		live[id] = session
	}
	m.mu.Unlock()

	var out []*models.Session
	if m.storage != nil {
		stored, err := m.storage.ListSessions(ctx)
		if err != nil {
			return nil, err
		}
		for _, s := range stored {
			if _, ok := live[s.ID]; !ok {
				out = append(out, s)
			}
		}
	}
	for _, session := range live {
		out = append(out, session.Snapshot())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}
