package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"WealthPulse/internal/model"
)

const growwBaseURL = "https://groww.in"

// GrowwAdapter is the secondary broker feed for equities.
type GrowwAdapter struct {
	BaseURL string
	Client  *http.Client
	FanOut  FanOut
}

// NewGrowwAdapter creates the broker feed adapter.
func NewGrowwAdapter(client *http.Client, fan FanOut) *GrowwAdapter {
	return &GrowwAdapter{BaseURL: growwBaseURL, Client: client, FanOut: fan}
}

func (f *GrowwAdapter) Name() string { return "groww" }

type growwLivePrice struct {
	Symbol        string   `json:"symbol"`
	LTP           *float64 `json:"ltp"`
	DayChange     float64  `json:"dayChange"`
	DayChangePerc float64  `json:"dayChangePerc"`
	LastTradeTime int64    `json:"lastTradeTime"` // unix seconds
}

func (f *GrowwAdapter) Fetch(ctx context.Context, symbols []string) ([]model.Quote, error) {
	return f.FanOut.FetchEach(ctx, f.Name(), symbols, f.fetchOne)
}

func (f *GrowwAdapter) fetchOne(ctx context.Context, symbol string) (model.Quote, error) {
	endpoint := fmt.Sprintf("%s/v1/api/stocks_data/v1/tr_live_prices/exchange/NSE/segment/CASH/%s",
		f.BaseURL, url.PathEscape(symbol))

	var p growwLivePrice
	if err := getJSON(ctx, f.Client, endpoint, nil, &p); err != nil {
		return model.Quote{}, err
	}
	if p.LTP == nil {
		return model.Quote{}, fmt.Errorf("%w: missing ltp", ErrMalformedResponse)
	}

	asOf := time.Now()
	if p.LastTradeTime > 0 {
		asOf = time.Unix(p.LastTradeTime, 0)
	}
	return model.Quote{
		Symbol:        symbol,
		Price:         decimal.NewFromFloat(*p.LTP),
		ChangePercent: p.DayChangePerc,
		AsOf:          asOf,
		Source:        f.Name(),
		Unit:          model.UnitPerShare,
		Currency:      model.DefaultCurrency,
	}, nil
}
