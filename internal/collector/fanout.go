package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"WealthPulse/internal/model"
)

const (
	DefaultMaxParallel   = 5
	DefaultSymbolTimeout = 8 * time.Second
)

// FanOut bounds the per-symbol sub-fetches of one adapter call.
type FanOut struct {
	MaxParallel   int
	SymbolTimeout time.Duration
	Log           zerolog.Logger
}

func (f FanOut) limit() int {
	if f.MaxParallel <= 0 {
		return DefaultMaxParallel
	}
	return f.MaxParallel
}

func (f FanOut) timeout() time.Duration {
	if f.SymbolTimeout <= 0 {
		return DefaultSymbolTimeout
	}
	return f.SymbolTimeout
}

// symbolFetch fetches one symbol.
type symbolFetch func(ctx context.Context, symbol string) (model.Quote, error)

// FetchEach runs fetch for every symbol with at most MaxParallel in flight and
// waits for all of them to settle. Each sub-fetch has its own deadline so a
// hung symbol cannot hold the batch past SymbolTimeout.
//
// Successful quotes are returned even when other symbols failed. An error is
// returned only when nothing succeeded and at least one failure was retryable.
func (f FanOut) FetchEach(ctx context.Context, adapter string, symbols []string, fetch symbolFetch) ([]model.Quote, error) {
	type outcome struct {
		quote model.Quote
		err   error
	}
	results := make([]outcome, len(symbols))

	var g errgroup.Group
	g.SetLimit(f.limit())
	for i, sym := range symbols {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = outcome{err: classify(adapter, sym, err)}
				return nil
			}
			sctx, cancel := context.WithTimeout(ctx, f.timeout())
			defer cancel()

			q, err := fetch(sctx, sym)
			switch {
			case err != nil:
				err = classify(adapter, sym, err)
			case !q.Valid():
				err = newAdapterError(adapter, sym, ErrMalformedResponse, fmt.Errorf("non-positive price %s", q.Price))
			}
			results[i] = outcome{quote: q, err: err}
			return nil
		})
	}
	_ = g.Wait()

	quotes := make([]model.Quote, 0, len(symbols))
	var failures []error
	for i, r := range results {
		if r.err == nil {
			quotes = append(quotes, r.quote)
			continue
		}
		if errors.Is(r.err, ErrSymbolNotFound) {
			f.Log.Debug().Str("adapter", adapter).Str("symbol", symbols[i]).Msg("symbol not found, omitted")
			continue
		}
		f.Log.Warn().Err(r.err).Str("adapter", adapter).Str("symbol", symbols[i]).Msg("symbol fetch failed")
		failures = append(failures, r.err)
	}

	if len(quotes) > 0 || len(failures) == 0 {
		return quotes, nil
	}
	return nil, errors.Join(failures...)
}
