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

const mfapiBaseURL = "https://api.mfapi.in"

// monthObservations is roughly one month of trading-day NAV publications.
const monthObservations = 21

// MFAPIAdapter serves mutual-fund NAVs keyed by AMFI scheme code.
type MFAPIAdapter struct {
	BaseURL string
	Client  *http.Client
	FanOut  FanOut
}

// NewMFAPIAdapter creates the mutual-fund NAV adapter.
func NewMFAPIAdapter(client *http.Client, fan FanOut) *MFAPIAdapter {
	return &MFAPIAdapter{BaseURL: mfapiBaseURL, Client: client, FanOut: fan}
}

func (f *MFAPIAdapter) Name() string { return "mfapi" }

type mfapiScheme struct {
	Meta struct {
		FundHouse  string `json:"fund_house"`
		SchemeName string `json:"scheme_name"`
		SchemeCode int    `json:"scheme_code"`
	} `json:"meta"`
	Data []struct {
		Date string `json:"date"` // dd-mm-yyyy
		NAV  string `json:"nav"`
	} `json:"data"`
	Status string `json:"status"`
}

func (f *MFAPIAdapter) Fetch(ctx context.Context, symbols []string) ([]model.Quote, error) {
	return f.FanOut.FetchEach(ctx, f.Name(), symbols, f.fetchOne)
}

func (f *MFAPIAdapter) fetchOne(ctx context.Context, code string) (model.Quote, error) {
	endpoint := fmt.Sprintf("%s/mf/%s", f.BaseURL, url.PathEscape(code))

	var s mfapiScheme
	if err := getJSON(ctx, f.Client, endpoint, nil, &s); err != nil {
		return model.Quote{}, err
	}
	// Unknown scheme codes come back as 200 with an empty history.
	if len(s.Data) == 0 {
		return model.Quote{}, ErrSymbolNotFound
	}

	latest, err := decimal.NewFromString(s.Data[0].NAV)
	if err != nil {
		return model.Quote{}, fmt.Errorf("%w: nav %q: %v", ErrMalformedResponse, s.Data[0].NAV, err)
	}

	// Newest first; compare against the observation about a month back.
	var change float64
	if back := min(monthObservations, len(s.Data)-1); back > 0 {
		if prev, err := decimal.NewFromString(s.Data[back].NAV); err == nil && prev.IsPositive() {
			change = latest.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
	}

	asOf := time.Now()
	if t, err := time.ParseInLocation("02-01-2006", s.Data[0].Date, model.IST); err == nil {
		asOf = t
	}

	return model.Quote{
		Symbol:        code,
		Name:          s.Meta.SchemeName,
		Price:         latest,
		ChangePercent: change,
		AsOf:          asOf,
		Source:        f.Name(),
		Unit:          model.UnitPerUnit,
		Currency:      model.DefaultCurrency,
	}, nil
}
