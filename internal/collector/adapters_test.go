package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WealthPulse/internal/model"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// hitCounter counts requests per query value of key.
type hitCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (h *hitCounter) add(k string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hits == nil {
		h.hits = make(map[string]int)
	}
	h.hits[k]++
}

func (h *hitCounter) get(k string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[k]
}

func TestNSE_PartialBatchOmitsUnknownSymbolWithoutRetry(t *testing.T) {
	var hits hitCounter
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sym := r.URL.Query().Get("symbol")
		hits.add(sym)
		if sym != "AAA" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{
			"info":      map[string]any{"symbol": "AAA", "companyName": "Alpha Ltd"},
			"metadata":  map[string]any{"lastUpdateTime": "17-Oct-2026 15:30:00"},
			"priceInfo": map[string]any{"lastPrice": 101.5, "pChange": 1.25},
		})
	}))
	defer server.Close()

	nse := NewNSEAdapter(server.Client(), FanOut{Log: quietLog()})
	nse.BaseURL = server.URL
	c, slept := newTestCollector(nse)

	set, err := c.Collect(context.Background(), model.DatasetEquities, []string{"AAA", "BBB"})
	require.NoError(t, err)

	require.Len(t, set.Quotes, 1)
	q := set.Quotes[0]
	assert.Equal(t, "AAA", q.Symbol)
	assert.Equal(t, "Alpha Ltd", q.Name)
	assert.True(t, decimal.RequireFromString("101.5").Equal(q.Price))
	assert.Equal(t, 1.25, q.ChangePercent)
	assert.Equal(t, "nse", q.Source)
	assert.Equal(t, model.UnitPerShare, q.Unit)
	assert.Equal(t, time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC), q.AsOf.UTC())

	assert.Equal(t, 1, hits.get("AAA"))
	assert.Equal(t, 1, hits.get("BBB"), "a not-found symbol is never retried")
	assert.Empty(t, *slept)
}

func TestNSE_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	nse := NewNSEAdapter(server.Client(), FanOut{Log: quietLog()})
	nse.BaseURL = server.URL

	_, err := nse.Fetch(context.Background(), []string{"TCS"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.NotErrorIs(t, err, ErrSymbolNotFound)
	assert.True(t, IsRetryable(err))
}

func TestGroww_MissingPriceIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/TCS") {
			writeJSON(w, map[string]any{"symbol": "TCS", "ltp": 4100.0, "dayChangePerc": -0.4, "lastTradeTime": 1792230000})
			return
		}
		writeJSON(w, map[string]any{"symbol": "INFY"})
	}))
	defer server.Close()

	groww := NewGrowwAdapter(server.Client(), FanOut{Log: quietLog()})
	groww.BaseURL = server.URL

	quotes, err := groww.Fetch(context.Background(), []string{"TCS"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, -0.4, quotes[0].ChangePercent)

	_, err = groww.Fetch(context.Background(), []string{"INFY"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestYahoo_IndexSymbolMapAndChange(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		writeJSON(w, map[string]any{"chart": map[string]any{"result": []any{
			map[string]any{"meta": map[string]any{
				"symbol": "^NSEI", "shortName": "NIFTY 50", "currency": "INR",
				"regularMarketPrice": 25200.0, "previousClose": 25000.0, "regularMarketTime": 1792230000,
			}},
		}}})
	}))
	defer server.Close()

	yahoo := NewYahooIndexAdapter(server.Client(), FanOut{Log: quietLog()})
	yahoo.BaseURL = server.URL

	quotes, err := yahoo.Fetch(context.Background(), []string{"NIFTY"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "/v8/finance/chart/^NSEI", path)
	assert.Equal(t, "NIFTY", quotes[0].Symbol)
	assert.Equal(t, "NIFTY 50", quotes[0].Name)
	assert.InDelta(t, 0.8, quotes[0].ChangePercent, 1e-9)
	assert.Equal(t, model.UnitPerUnit, quotes[0].Unit)
}

func TestYahoo_EquitySuffixAndNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"chart": map[string]any{
			"result": nil,
			"error":  map[string]any{"code": "Not Found", "description": "No data found, symbol may be delisted"},
		}})
	}))
	defer server.Close()

	yahoo := NewYahooAdapter(server.Client(), FanOut{Log: quietLog()})
	yahoo.BaseURL = server.URL
	assert.Equal(t, "RELIANCE.NS", yahoo.yahooSymbol("RELIANCE"))

	quotes, err := yahoo.Fetch(context.Background(), []string{"DELISTED"})
	require.NoError(t, err, "all symbols not found is an empty result, not an error")
	assert.Empty(t, quotes)
}

func TestIBJA_NormalizesGoldPerTenGrams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		writeJSON(w, map[string]any{"success": true, "rates": map[string]any{
			"gold": map[string]any{
				"999": map[string]any{"am": 7400.0, "pm": 7420.5},
				"916": map[string]any{"am": 6790.0},
			},
			"silver": map[string]any{"999": map[string]any{"am": 95.2}},
		}})
	}))
	defer server.Close()

	ibja := NewIBJAAdapter(server.Client(), "secret")
	ibja.BaseURL = server.URL

	quotes, err := ibja.Fetch(context.Background(), []string{SymbolGold24K, SymbolGold22K, SymbolGold18K, SymbolSilver})
	require.NoError(t, err)
	require.Len(t, quotes, 3, "18K is absent from the feed")
	assert.Equal(t, SymbolGold24K, quotes[0].Symbol)
	assert.Equal(t, "74205", quotes[0].Price.String())
	assert.Equal(t, model.UnitPer10Grams, quotes[0].Unit)
	assert.Equal(t, "67900", quotes[1].Price.String())
	assert.Equal(t, "95.2", quotes[2].Price.String())
	assert.Equal(t, model.UnitPerGram, quotes[2].Unit)
}

func TestGoldRates_EndpointMovedIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	gr := NewGoldRatesAdapter(server.Client())
	gr.BaseURL = server.URL

	_, err := gr.Fetch(context.Background(), []string{SymbolGold24K})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.True(t, IsRetryable(err))
}

func TestCollect_MovedMetalsEndpointUsesRetryBudget(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	gr := NewGoldRatesAdapter(server.Client())
	gr.BaseURL = server.URL
	c, slept := newTestCollector(gr)

	_, err := c.Collect(context.Background(), model.DatasetEquities, []string{SymbolGold24K})
	require.ErrorIs(t, err, ErrNoDataAvailable)
	assert.Equal(t, int64(3), hits.Load())
	assert.Len(t, *slept, 2)
}

func TestGoldRates_CityPreference(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true, "rates": map[string]any{
			"Delhi": map[string]any{"gold_24k": 74000.0, "gold_22k": 67800.0},
		}})
	}))
	defer server.Close()

	gr := NewGoldRatesAdapter(server.Client())
	gr.BaseURL = server.URL

	quotes, err := gr.Fetch(context.Background(), []string{SymbolGold18K, SymbolGold24K})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, SymbolGold18K, quotes[0].Symbol)
	assert.Equal(t, "55500", quotes[0].Price.String())
	assert.Equal(t, "74000", quotes[1].Price.String())
}

func TestGoldAPI_DerivesPuritiesAndSendsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("x-access-token"))
		writeJSON(w, map[string]any{"price_gram_24k": 7500.0, "chp": 0.3, "timestamp": 1792230000})
	}))
	defer server.Close()

	ga := NewGoldAPIAdapter(server.Client(), "tok")
	ga.BaseURL = server.URL

	quotes, err := ga.Fetch(context.Background(), DefaultMetals)
	require.NoError(t, err)
	require.Len(t, quotes, 3)
	assert.Equal(t, "75000", quotes[0].Price.String())
	assert.Equal(t, "68700", quotes[1].Price.String())
	assert.Equal(t, "56250", quotes[2].Price.String())
	assert.Equal(t, time.Unix(1792230000, 0), quotes[0].AsOf)
}

func TestMFAPI_MonthlyReturn(t *testing.T) {
	data := make([]map[string]string, 30)
	for i := range data {
		data[i] = map[string]string{"date": "17-10-2026", "nav": "100.0000"}
	}
	data[0]["nav"] = "110.0000"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mf/120503" {
			writeJSON(w, map[string]any{"meta": map[string]any{}, "data": []any{}, "status": "SUCCESS"})
			return
		}
		writeJSON(w, map[string]any{
			"meta":   map[string]any{"scheme_name": "Axis Large Cap Fund", "scheme_code": 120503},
			"data":   data,
			"status": "SUCCESS",
		})
	}))
	defer server.Close()

	mf := NewMFAPIAdapter(server.Client(), FanOut{Log: quietLog()})
	mf.BaseURL = server.URL

	quotes, err := mf.Fetch(context.Background(), []string{"120503", "999999"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "Axis Large Cap Fund", quotes[0].Name)
	assert.Equal(t, "110", quotes[0].Price.String())
	assert.Equal(t, 10.0, quotes[0].ChangePercent)
	assert.Equal(t, model.UnitPerUnit, quotes[0].Unit)
}

func TestFanOut_BoundsParallelism(t *testing.T) {
	var inFlight, peak atomic.Int64
	fetch := func(ctx context.Context, symbol string) (model.Quote, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return quote(symbol, 1), nil
	}

	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	quotes, err := FanOut{MaxParallel: 2, Log: quietLog()}.FetchEach(context.Background(), "t", symbols, fetch)
	require.NoError(t, err)
	assert.Len(t, quotes, len(symbols))
	assert.LessOrEqual(t, peak.Load(), int64(2))
	for i, q := range quotes {
		assert.Equal(t, symbols[i], q.Symbol, "results keep request order")
	}
}

func TestFanOut_SymbolTimeout(t *testing.T) {
	fetch := func(ctx context.Context, symbol string) (model.Quote, error) {
		if symbol == "SLOW" {
			<-ctx.Done()
			return model.Quote{}, ctx.Err()
		}
		return quote(symbol, 5), nil
	}
	fan := FanOut{SymbolTimeout: 20 * time.Millisecond, Log: quietLog()}

	quotes, err := fan.FetchEach(context.Background(), "t", []string{"FAST", "SLOW"}, fetch)
	require.NoError(t, err, "partial results win over a hung symbol")
	require.Len(t, quotes, 1)

	_, err = fan.FetchEach(context.Background(), "t", []string{"SLOW"}, fetch)
	assert.ErrorIs(t, err, ErrAdapterTimeout)
}
