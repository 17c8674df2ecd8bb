package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"WealthPulse/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooAdapter is the generic finance feed. It serves NSE equities through the
// ".NS" ticker suffix and indices through an explicit symbol map.
type YahooAdapter struct {
	BaseURL   string
	Client    *http.Client
	Suffix    string            // appended to unmapped symbols
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
	Unit      model.Unit
	FanOut    FanOut
	name      string
}

// NewYahooAdapter creates the equities flavour of the Yahoo feed.
func NewYahooAdapter(client *http.Client, fan FanOut) *YahooAdapter {
	return &YahooAdapter{
		BaseURL:   yahooBaseURL,
		Client:    client,
		Suffix:    ".NS",
		SymbolMap: map[string]string{},
		Unit:      model.UnitPerShare,
		FanOut:    fan,
		name:      "yahoo",
	}
}

// NewYahooIndexAdapter creates the indices flavour of the Yahoo feed.
func NewYahooIndexAdapter(client *http.Client, fan FanOut) *YahooAdapter {
	return &YahooAdapter{
		BaseURL: yahooBaseURL,
		Client:  client,
		SymbolMap: map[string]string{
			"NIFTY":     "^NSEI",
			"SENSEX":    "^BSESN",
			"BANKNIFTY": "^NSEBANK",
			"MIDCAP":    "^NSMIDCP",
			"IT":        "^CNXIT",
		},
		Unit:   model.UnitPerUnit,
		FanOut: fan,
		name:   "yahoo-indices",
	}
}

func (f *YahooAdapter) Name() string { return f.name }

func (f *YahooAdapter) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	if f.Suffix != "" && !strings.HasSuffix(symbol, f.Suffix) {
		return symbol + f.Suffix
	}
	return symbol
}

// yahooChart is the subset of the chart API response the adapter reads.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				LongName           string   `json:"longName"`
				ShortName          string   `json:"shortName"`
				Currency           string   `json:"currency"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				PreviousClose      *float64 `json:"previousClose"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64    `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (f *YahooAdapter) Fetch(ctx context.Context, symbols []string) ([]model.Quote, error) {
	return f.FanOut.FetchEach(ctx, f.name, symbols, f.fetchOne)
}

func (f *YahooAdapter) fetchOne(ctx context.Context, symbol string) (model.Quote, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)))

	var chart yahooChart
	if err := getJSON(ctx, f.Client, u, nil, &chart); err != nil {
		return model.Quote{}, err
	}
	if chart.Chart.Error != nil {
		if strings.EqualFold(chart.Chart.Error.Code, "Not Found") {
			return model.Quote{}, ErrSymbolNotFound
		}
		return model.Quote{}, fmt.Errorf("%w: yahoo api error: %s", ErrProviderUnavailable, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return model.Quote{}, ErrSymbolNotFound
	}

	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil {
		return model.Quote{}, fmt.Errorf("%w: missing regularMarketPrice", ErrMalformedResponse)
	}
	price := *meta.RegularMarketPrice
	prev := meta.PreviousClose
	if prev == nil {
		prev = meta.ChartPreviousClose
	}
	var change float64
	if prev != nil && *prev != 0 {
		change = (price - *prev) / *prev * 100
	}

	asOf := time.Now()
	if meta.RegularMarketTime > 0 {
		asOf = time.Unix(meta.RegularMarketTime, 0)
	}
	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	currency := meta.Currency
	if currency == "" {
		currency = model.DefaultCurrency
	}

	return model.Quote{
		Symbol:        symbol,
		Name:          name,
		Price:         decimal.NewFromFloat(price),
		ChangePercent: change,
		AsOf:          asOf,
		Source:        f.name,
		Unit:          f.Unit,
		Currency:      currency,
	}, nil
}
