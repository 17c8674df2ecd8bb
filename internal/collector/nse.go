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

const nseBaseURL = "https://www.nseindia.com"

// NSEAdapter is the primary exchange feed for equities.
type NSEAdapter struct {
	BaseURL string
	Client  *http.Client
	FanOut  FanOut
}

// NewNSEAdapter creates the exchange feed adapter.
func NewNSEAdapter(client *http.Client, fan FanOut) *NSEAdapter {
	return &NSEAdapter{BaseURL: nseBaseURL, Client: client, FanOut: fan}
}

func (f *NSEAdapter) Name() string { return "nse" }

// nseQuote is the expected JSON shape of quote-equity.
type nseQuote struct {
	Info *struct {
		Symbol      string `json:"symbol"`
		CompanyName string `json:"companyName"`
	} `json:"info"`
	Metadata *struct {
		LastUpdateTime string `json:"lastUpdateTime"`
	} `json:"metadata"`
	PriceInfo *struct {
		LastPrice float64 `json:"lastPrice"`
		Change    float64 `json:"change"`
		PChange   float64 `json:"pChange"`
	} `json:"priceInfo"`
}

const nseTimeLayout = "02-Jan-2006 15:04:05"

func (f *NSEAdapter) Fetch(ctx context.Context, symbols []string) ([]model.Quote, error) {
	return f.FanOut.FetchEach(ctx, f.Name(), symbols, f.fetchOne)
}

func (f *NSEAdapter) fetchOne(ctx context.Context, symbol string) (model.Quote, error) {
	endpoint := fmt.Sprintf("%s/api/quote-equity?symbol=%s", f.BaseURL, url.QueryEscape(symbol))
	header := http.Header{}
	header.Set("Accept-Language", "en-US,en;q=0.9")

	var q nseQuote
	if err := getJSON(ctx, f.Client, endpoint, header, &q); err != nil {
		return model.Quote{}, err
	}
	// NSE answers unknown symbols with an empty object.
	if q.PriceInfo == nil {
		return model.Quote{}, ErrSymbolNotFound
	}

	asOf := time.Now()
	if q.Metadata != nil && q.Metadata.LastUpdateTime != "" {
		if t, err := time.ParseInLocation(nseTimeLayout, q.Metadata.LastUpdateTime, model.IST); err == nil {
			asOf = t
		}
	}
	var name string
	if q.Info != nil {
		name = q.Info.CompanyName
	}

	return model.Quote{
		Symbol:        symbol,
		Name:          name,
		Price:         decimal.NewFromFloat(q.PriceInfo.LastPrice),
		ChangePercent: q.PriceInfo.PChange,
		AsOf:          asOf,
		Source:        f.Name(),
		Unit:          model.UnitPerShare,
		Currency:      model.DefaultCurrency,
	}, nil
}
