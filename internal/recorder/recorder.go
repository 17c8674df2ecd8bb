package recorder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"WealthPulse/internal/model"
)

// ErrNotFound is returned when no snapshot has been recorded for a key.
var ErrNotFound = errors.New("recorder: not found")

// Recorder persists market snapshots and investment performance for later
// analysis and as a last-resort source when every provider is down.
type Recorder interface {
	// SaveQuotes stores a successfully fetched quote set under its cache key.
	SaveQuotes(ctx context.Context, key string, set *model.QuoteSet, fetchedAt time.Time) error
	// LatestQuotes returns the newest set stored under key, or ErrNotFound.
	LatestQuotes(ctx context.Context, key string) (*model.QuoteSet, time.Time, error)
	// QuoteHistory returns up to limit recorded quotes of symbol, newest first.
	QuoteHistory(ctx context.Context, dataset model.Dataset, symbol string, limit int) ([]model.Quote, error)
	RecordPerformance(ctx context.Context, investmentID uuid.UUID, snap model.PerformanceSnapshot) error
	PerformanceHistory(ctx context.Context, investmentID uuid.UUID) ([]model.PerformanceSnapshot, error)
	Close() error
}
