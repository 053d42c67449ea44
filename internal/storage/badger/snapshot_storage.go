package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SnapshotStorage holds the latest top terms snapshot
type SnapshotStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSnapshotStorage creates a new SnapshotStorage instance
func NewSnapshotStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SnapshotStorage {
	return &SnapshotStorage{
		db:     db,
		logger: logger,
	}
}

// ReplaceTopTerms swaps the stored snapshot for terms
func (s *SnapshotStorage) ReplaceTopTerms(ctx context.Context, terms []models.TopTerm) error {
	store := s.db.Store()

	if err := store.DeleteMatching(&models.TopTerm{}, nil); err != nil {
		return fmt.Errorf("failed to clear top terms: %w", err)
	}

	for i := range terms {
		term := terms[i]
		if term.ID == "" {
			term.ID = TopTermID(term)
		}
		if err := store.Upsert(term.ID, &term); err != nil {
			return fmt.Errorf("failed to store top term %q: %w", term.Term, err)
		}
	}

	s.logger.Debug().Int("terms", len(terms)).Msg("Replaced top terms snapshot")
	return nil
}

// GetTopTerms returns the snapshot ordered by day then rank
func (s *SnapshotStorage) GetTopTerms(ctx context.Context) ([]models.TopTerm, error) {
	var terms []models.TopTerm
	if err := s.db.Store().Find(&terms, badgerhold.Where("ID").Ne("").SortBy("Day", "Rank")); err != nil {
		return nil, fmt.Errorf("failed to load top terms: %w", err)
	}
	return terms, nil
}

// TopTermID builds the storage key for a snapshot row
func TopTermID(term models.TopTerm) string {
	return fmt.Sprintf("%s|%03d|%s", term.Day.Format("2006-01-02"), term.Rank, term.Term)
}
