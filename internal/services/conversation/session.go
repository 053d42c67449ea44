package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

// Session is one conversation with the generative model.
// Turns are serialised by mu so concurrent callers on the same session are ordered, never interleaved.
type Session struct {
	mu         sync.Mutex
	id         string
	turns      []models.Turn
	createdAt  time.Time
	updatedAt  time.Time
	llm        interfaces.LLMProvider
	storage    interfaces.SessionStorage
	maxHistory int
	logger     arbor.ILogger
	now        func() time.Time
	deleted    bool // Set under mu by Manager.Delete and Sweep; stops persist
}

func newSession(id string, llm interfaces.LLMProvider, storage interfaces.SessionStorage, maxHistory int, logger arbor.ILogger) *Session {
	now := time.Now().UTC()
	return &Session{
		id:         id,
		createdAt:  now,
		updatedAt:  now,
		llm:        llm,
		storage:    storage,
		maxHistory: maxHistory,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Send sends prompt with the session history and records both turns on success
func (s *Session) Send(ctx context.Context, prompt string) (string, error) {
	return s.send(ctx, prompt, nil)
}

// SendStructured is Send with a JSON schema constraint on the reply
func (s *Session) SendStructured(ctx context.Context, prompt string, schema map[string]interface{}) (string, error) {
	return s.send(ctx, prompt, schema)
}

func (s *Session) send(ctx context.Context, prompt string, schema map[string]interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := s.historyMessages()
	messages = append(messages, interfaces.Message{Role: models.RoleUser, Content: prompt})

	resp, err := s.llm.GenerateContent(ctx, &interfaces.ContentRequest{
		Messages:     messages,
		OutputSchema: schema,
	})
	if err != nil {
		return "", fmt.Errorf("session %s: %w", s.id, err)
	}

	now := s.now()
	s.turns = append(s.turns,
		models.Turn{Role: models.RoleUser, Content: prompt, At: now},
		models.Turn{Role: models.RoleAssistant, Content: resp.Text, At: now},
	)
	s.updatedAt = now

	s.persist(ctx)

	return resp.Text, nil
}

// historyMessages returns the replayed window of turns. The window always starts on a user turn.
func (s *Session) historyMessages() []interfaces.Message {
	turns := s.turns
	if s.maxHistory > 0 && len(turns) > s.maxHistory {
		turns = turns[len(turns)-s.maxHistory:]
		for len(turns) > 0 && turns[0].Role != models.RoleUser {
			turns = turns[1:]
		}
	}

	messages := make([]interfaces.Message, 0, len(turns)+1)
	for _, turn := range turns {
		messages = append(messages, interfaces.Message{Role: turn.Role, Content: turn.Content})
	}
	return messages
}

// History returns a copy of all recorded turns
func (s *Session) History() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Reset clears the turn history
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil
	s.updatedAt = s.now()
	s.persist(ctx)
}

// Snapshot returns the persisted form of the session
func (s *Session) Snapshot() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() *models.Session {
	turns := make([]models.Turn, len(s.turns))
	copy(turns, s.turns)
	return &models.Session{
		ID:        s.id,
		Turns:     turns,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}

// persist writes the session to storage. Storage failures are logged, never returned,
// so a broken store degrades to in-memory sessions.
func (s *Session) persist(ctx context.Context) {
	if s.storage == nil || s.deleted {
		return
	}
	if err := s.storage.SaveSession(ctx, s.snapshotLocked()); err != nil {
		s.logger.Warn().Err(err).Str("session_id", s.id).Msg("Failed to persist session")
	}
}

func (s *Session) restore(stored *models.Session) {
	s.turns = stored.Turns
	s.createdAt = stored.CreatedAt
	s.updatedAt = stored.UpdatedAt
}
