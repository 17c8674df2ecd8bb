// Package advisor turns a user question plus a portfolio digest into advice
// from a language model.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"WealthPulse/internal/model"
)

var (
	// ErrEmptyMessage rejects blank questions before any outbound call.
	ErrEmptyMessage = errors.New("advisor: message is required")
	// ErrRateLimited means the hourly advice budget is spent.
	ErrRateLimited = errors.New("advisor: too many requests")
)

// DefaultMaxPerHour is the advice budget per process.
const DefaultMaxPerHour = 20

// IndexSource supplies the latest benchmark quotes keyed by index name.
type IndexSource func(ctx context.Context) (map[string]model.Quote, error)

// MarketContext echoes the benchmarks the advice was based on.
type MarketContext struct {
	Nifty   *model.Quote `json:"nifty,omitempty"`
	Sensex  *model.Quote `json:"sensex,omitempty"`
	Updated time.Time    `json:"updated"`
}

// Response is the full answer returned to the caller.
type Response struct {
	Advice        string        `json:"advice"`
	Suggestions   []string      `json:"suggestions"`
	MarketContext MarketContext `json:"marketContext"`
}

// Advisor enforces input and rate rules around a Gateway.
type Advisor struct {
	gateway Gateway
	limiter *rate.Limiter
	indices IndexSource
	log     zerolog.Logger
	now     func() time.Time
}

// New creates an Advisor allowing maxPerHour calls, bursting up to that many.
func New(gateway Gateway, indices IndexSource, maxPerHour int, log zerolog.Logger) *Advisor {
	if maxPerHour <= 0 {
		maxPerHour = DefaultMaxPerHour
	}
	return &Advisor{
		gateway: gateway,
		limiter: rate.NewLimiter(rate.Every(time.Hour/time.Duration(maxPerHour)), maxPerHour),
		indices: indices,
		log:     log.With().Str("component", "advisor").Logger(),
		now:     time.Now,
	}
}

// Ask answers message in the context of the user's investments. Market data
// is best effort: without it the prompt says N/A.
func (a *Advisor) Ask(ctx context.Context, message string, invs []model.Investment) (*Response, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if !a.limiter.Allow() {
		return nil, ErrRateLimited
	}

	var indices map[string]model.Quote
	if a.indices != nil {
		var err error
		if indices, err = a.indices(ctx); err != nil {
			a.log.Warn().Err(err).Msg("market context unavailable")
		}
	}

	req := Request{Message: message, Context: BuildContext(invs), Indices: indices}
	start := a.now()
	advice, err := a.gateway.Advise(ctx, req)
	if err != nil {
		a.log.Error().Err(err).Msg("advice generation failed")
		return nil, fmt.Errorf("generate advice: %w", err)
	}
	a.log.Info().Int("holdings", req.Context.HoldingsCount).Dur("took", a.now().Sub(start)).Msg("advice generated")

	resp := &Response{
		Advice:        advice.Advice,
		Suggestions:   advice.Suggestions,
		MarketContext: MarketContext{Updated: a.now()},
	}
	if len(resp.Suggestions) == 0 {
		resp.Suggestions = Suggestions(message)
	}
	if q, ok := indices["NIFTY"]; ok {
		resp.MarketContext.Nifty = &q
	}
	if q, ok := indices["SENSEX"]; ok {
		resp.MarketContext.Sensex = &q
	}
	return resp, nil
}
