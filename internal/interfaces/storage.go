package interfaces

import (
	"context"

	"github.com/ternarybob/marketlens/internal/models"
)

// SessionStorage persists conversation sessions
type SessionStorage interface {
	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error) // Returns ErrNotFound when absent
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]*models.Session, error)
}

// SnapshotStorage persists the top terms snapshot
type SnapshotStorage interface {
	ReplaceTopTerms(ctx context.Context, terms []models.TopTerm) error
	GetTopTerms(ctx context.Context) ([]models.TopTerm, error)
}
