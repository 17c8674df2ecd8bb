package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"WealthPulse/internal/model"
)

// RetryPolicy bounds how long one adapter may be tried before the waterfall moves on.
type RetryPolicy struct {
	Attempts int           // total tries per adapter
	Timeout  time.Duration // per attempt
	Backoff  time.Duration // multiplied by the attempt number
}

// DefaultRetryPolicy is three attempts of ten seconds with linear backoff.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Timeout: 10 * time.Second, Backoff: time.Second}

// Collector runs the provider waterfall for a dataset.
type Collector struct {
	Waterfalls map[model.Dataset][]Adapter
	Policy     RetryPolicy
	Log        zerolog.Logger

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCollector creates a Collector with the default retry policy.
func NewCollector(waterfalls map[model.Dataset][]Adapter, log zerolog.Logger) *Collector {
	return &Collector{
		Waterfalls: waterfalls,
		Policy:     DefaultRetryPolicy,
		Log:        log.With().Str("component", "collector").Logger(),
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Collect walks the dataset's adapters in order and returns the first
// non-empty result. Retryable failures are retried on the same adapter up to
// Policy.Attempts; an empty success moves straight to the next adapter.
// When every adapter is exhausted the error is a *NoDataError.
func (c *Collector) Collect(ctx context.Context, dataset model.Dataset, symbols []string) (*model.QuoteSet, error) {
	adapters, ok := c.Waterfalls[dataset]
	if !ok || len(adapters) == 0 {
		return nil, &NoDataError{Dataset: string(dataset), Causes: []error{fmt.Errorf("no adapters configured")}}
	}
	symbols = model.NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("collect %s: no symbols requested", dataset)
	}

	var causes []error
	for _, a := range adapters {
		quotes, err := c.tryAdapter(ctx, a, symbols)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			causes = append(causes, err)
			c.Log.Warn().Err(err).Str("dataset", string(dataset)).Str("adapter", a.Name()).Msg("adapter exhausted, falling through")
			continue
		}
		if len(quotes) == 0 {
			causes = append(causes, fmt.Errorf("%s: no quotes for %v", a.Name(), symbols))
			c.Log.Info().Str("dataset", string(dataset)).Str("adapter", a.Name()).Msg("adapter returned no quotes, falling through")
			continue
		}

		asOf := quotes[0].AsOf
		for _, q := range quotes[1:] {
			if q.AsOf.After(asOf) {
				asOf = q.AsOf
			}
		}
		c.Log.Debug().Str("dataset", string(dataset)).Str("adapter", a.Name()).
			Int("quotes", len(quotes)).Int("requested", len(symbols)).Msg("collected")
		return &model.QuoteSet{Dataset: dataset, Quotes: quotes, AsOf: asOf, Source: a.Name()}, nil
	}

	nd := &NoDataError{Dataset: string(dataset), Causes: causes}
	c.Log.Error().Err(nd).Str("dataset", string(dataset)).Msg("all adapters exhausted")
	return nil, nd
}

// tryAdapter calls one adapter under the retry policy.
func (c *Collector) tryAdapter(ctx context.Context, a Adapter, symbols []string) ([]model.Quote, error) {
	attempts := max(c.Policy.Attempts, 1)
	sleep := c.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		quotes, err := c.attempt(ctx, a, symbols)
		if err == nil {
			return stamp(quotes, a.Name()), nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == attempts {
			break
		}
		backoff := c.Policy.Backoff * time.Duration(attempt)
		c.Log.Warn().Err(err).Str("adapter", a.Name()).
			Int("attempt", attempt).Int("of", attempts).Dur("backoff", backoff).Msg("fetch failed, retrying")
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Collector) attempt(ctx context.Context, a Adapter, symbols []string) ([]model.Quote, error) {
	actx := ctx
	if c.Policy.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, c.Policy.Timeout)
		defer cancel()
	}
	quotes, err := a.Fetch(actx, symbols)
	if err != nil {
		return nil, classify(a.Name(), "", err)
	}
	// Quotes that settled before the deadline are kept; only an attempt that
	// produced nothing in time counts as timed out.
	if len(quotes) == 0 && actx.Err() != nil && ctx.Err() == nil {
		return nil, newAdapterError(a.Name(), "", ErrAdapterTimeout, actx.Err())
	}
	return quotes, nil
}

// stamp drops invalid quotes and guarantees the source attribution.
func stamp(quotes []model.Quote, source string) []model.Quote {
	out := quotes[:0:0]
	for _, q := range quotes {
		if !q.Valid() {
			continue
		}
		q.Symbol = model.NormalizeSymbol(q.Symbol)
		q.Source = source
		if q.Currency == "" {
			q.Currency = model.DefaultCurrency
		}
		out = append(out, q)
	}
	return out
}
