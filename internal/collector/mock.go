package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"WealthPulse/internal/model"
)

// MockAdapter returns controllable data for development and testing.
// Responses are consumed in order; once exhausted the last one repeats.
// With no responses it generates a quote for every requested symbol.
type MockAdapter struct {
	AdapterName string
	Price       decimal.Decimal
	Responses   []MockResponse
	Delay       time.Duration // honours ctx cancellation

	mu    sync.Mutex
	next  int
	calls atomic.Int64
}

// MockResponse is one scripted answer of a MockAdapter.
type MockResponse struct {
	Quotes []model.Quote
	Err    error
}

func (m *MockAdapter) Name() string {
	if m.AdapterName == "" {
		return "mock"
	}
	return m.AdapterName
}

// Calls reports how many times Fetch was invoked.
func (m *MockAdapter) Calls() int { return int(m.calls.Load()) }

func (m *MockAdapter) Fetch(ctx context.Context, symbols []string) ([]model.Quote, error) {
	m.calls.Add(1)
	if m.Delay > 0 {
		if err := sleepCtx(ctx, m.Delay); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	var resp *MockResponse
	if n := len(m.Responses); n > 0 {
		resp = &m.Responses[min(m.next, n-1)]
		m.next++
	}
	m.mu.Unlock()

	if resp != nil {
		return resp.Quotes, resp.Err
	}
	return generateMockQuotes(m.Name(), m.Price, symbols), nil
}

func generateMockQuotes(source string, base decimal.Decimal, symbols []string) []model.Quote {
	if !base.IsPositive() {
		base = decimal.NewFromInt(100)
	}
	now := time.Now()
	quotes := make([]model.Quote, len(symbols))
	for i, s := range symbols {
		quotes[i] = model.Quote{
			Symbol:   s,
			Price:    base.Add(decimal.NewFromInt(int64(i))),
			AsOf:     now,
			Source:   source,
			Unit:     model.UnitPerShare,
			Currency: model.DefaultCurrency,
		}
	}
	return quotes
}
