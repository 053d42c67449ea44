package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/marketlens/internal/models"
)

// SymbolInfo is the metadata returned by a price provider for a symbol lookup
type SymbolInfo struct {
	Symbol   string
	Name     string
	Exchange string
	Currency string
}

// PriceProvider looks up listings and daily price history
type PriceProvider interface {
	// Lookup returns metadata for symbol. A nil result with nil error means the symbol is not listed.
	Lookup(ctx context.Context, symbol string) (*SymbolInfo, error)

	// History returns daily bars covering [start, end], oldest first
	History(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error)
}

// TrendsProvider returns relative search interest over time for a keyword
type TrendsProvider interface {
	InterestOverTime(ctx context.Context, keyword string) ([]models.TrendPoint, error)
}

// NewsProvider searches recent news articles for a keyword
type NewsProvider interface {
	Search(ctx context.Context, keyword string) ([]models.Article, error)
}

// Warehouse queries the top search terms table
type Warehouse interface {
	TopTerms(ctx context.Context, since time.Time, maxRank int) ([]models.TopTerm, error)
	Close() error
}
