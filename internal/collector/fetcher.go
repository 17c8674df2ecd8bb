package collector

import (
	"context"

	"WealthPulse/internal/model"
)

// Adapter fetches and normalizes quotes from one upstream provider.
//
// Implementations never retry. A symbol the provider does not know is omitted
// from the result; the call only fails when no symbol could be fetched for a
// retryable reason.
type Adapter interface {
	Fetch(ctx context.Context, symbols []string) ([]model.Quote, error)
	Name() string
}
