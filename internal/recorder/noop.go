package recorder

import (
	"context"
	"time"

	"github.com/google/uuid"

	"WealthPulse/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) SaveQuotes(context.Context, string, *model.QuoteSet, time.Time) error {
	return nil
}

func (n *NoopRecorder) LatestQuotes(context.Context, string) (*model.QuoteSet, time.Time, error) {
	return nil, time.Time{}, ErrNotFound
}

func (n *NoopRecorder) QuoteHistory(context.Context, model.Dataset, string, int) ([]model.Quote, error) {
	return nil, nil
}

func (n *NoopRecorder) RecordPerformance(context.Context, uuid.UUID, model.PerformanceSnapshot) error {
	return nil
}

func (n *NoopRecorder) PerformanceHistory(context.Context, uuid.UUID) ([]model.PerformanceSnapshot, error) {
	return nil, nil
}

func (n *NoopRecorder) Close() error { return nil }
