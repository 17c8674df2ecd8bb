package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"WealthPulse/internal/model"
)

// Metal symbols served by the gold dataset.
const (
	SymbolGold24K = "GOLD-24K"
	SymbolGold22K = "GOLD-22K"
	SymbolGold18K = "GOLD-18K"
	SymbolSilver  = "SILVER"
)

var (
	ten           = decimal.NewFromInt(10)
	purity22K     = decimal.RequireFromString("0.916")
	purity18K     = decimal.RequireFromString("0.75")
	gramsPerOunce = decimal.RequireFromString("31.1035")
)

// pickRequested keeps only the requested symbols, in request order. Symbols the
// provider did not report are simply absent.
func pickRequested(available map[string]model.Quote, symbols []string) []model.Quote {
	out := make([]model.Quote, 0, len(symbols))
	for _, s := range symbols {
		if q, ok := available[s]; ok && q.Valid() {
			out = append(out, q)
		}
	}
	return out
}

// batchError classifies a failure of a whole-dataset endpoint. A 404 there
// means the endpoint moved, not that a symbol is unknown.
func batchError(adapter string, err error) error {
	if errors.Is(err, ErrSymbolNotFound) {
		return newAdapterError(adapter, "", ErrProviderUnavailable, errors.New("endpoint returned status 404"))
	}
	return classify(adapter, "", err)
}

func metalQuote(symbol, source string, price decimal.Decimal, change float64, unit model.Unit, asOf time.Time) model.Quote {
	return model.Quote{
		Symbol:        symbol,
		Price:         price.Round(2),
		ChangePercent: change,
		AsOf:          asOf,
		Source:        source,
		Unit:          unit,
		Currency:      model.DefaultCurrency,
	}
}

// IBJAAdapter is the primary precious-metals feed. It reports INR per gram;
// gold is normalized to per-10-grams, silver stays per gram.
type IBJAAdapter struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewIBJAAdapter creates the IBJA rates adapter.
func NewIBJAAdapter(client *http.Client, apiKey string) *IBJAAdapter {
	return &IBJAAdapter{BaseURL: "https://api.indiagoldratesapi.com", APIKey: apiKey, Client: client}
}

func (f *IBJAAdapter) Name() string { return "ibja" }

type ibjaSession struct {
	AM *float64 `json:"am"`
	PM *float64 `json:"pm"`
}

type ibjaRates struct {
	Success bool `json:"success"`
	Rates   struct {
		Gold   map[string]ibjaSession `json:"gold"`
		Silver map[string]ibjaSession `json:"silver"`
	} `json:"rates"`
}

func (s ibjaSession) latest() (float64, bool) {
	// The afternoon fix supersedes the morning one once published.
	if s.PM != nil && *s.PM > 0 {
		return *s.PM, true
	}
	if s.AM != nil && *s.AM > 0 {
		return *s.AM, true
	}
	return 0, false
}

func (f *IBJAAdapter) Fetch(ctx context.Context, symbols []string) ([]model.Quote, error) {
	endpoint := fmt.Sprintf("%s/v1/rates?api_key=%s&format=json", f.BaseURL, url.QueryEscape(f.APIKey))
	var r ibjaRates
	if err := getJSON(ctx, f.Client, endpoint, nil, &r); err != nil {
		return nil, batchError(f.Name(), err)
	}
	if !r.Success {
		return nil, newAdapterError(f.Name(), "", ErrProviderUnavailable, fmt.Errorf("success=false"))
	}

	now := time.Now()
	available := make(map[string]model.Quote)
	for purity, symbol := range map[string]string{"999": SymbolGold24K, "916": SymbolGold22K, "750": SymbolGold18K} {
		if p, ok := r.Rates.Gold[purity].latest(); ok {
			available[symbol] = metalQuote(symbol, f.Name(), decimal.NewFromFloat(p).Mul(ten), 0, model.UnitPer10Grams, now)
		}
	}
	if p, ok := r.Rates.Silver["999"].latest(); ok {
		available[SymbolSilver] = metalQuote(SymbolSilver, f.Name(), decimal.NewFromFloat(p), 0, model.UnitPerGram, now)
	}
	return pickRequested(available, symbols), nil
}

// GoldRatesAdapter is the alternative metals feed publishing city-wise rates,
// gold already quoted per 10 grams.
type GoldRatesAdapter struct {
	BaseURL string
	Cities  []string // preference order
	Client  *http.Client
}

// NewGoldRatesAdapter creates the city rates adapter.
func NewGoldRatesAdapter(client *http.Client) *GoldRatesAdapter {
	return &GoldRatesAdapter{
		BaseURL: "https://api.gold-price-api-india.pages.dev",
		Cities:  []string{"Mumbai", "Delhi"},
		Client:  client,
	}
}

func (f *GoldRatesAdapter) Name() string { return "goldrates" }

type cityRates struct {
	Gold24K       float64 `json:"gold_24k"`
	Gold22K       float64 `json:"gold_22k"`
	Gold24KChange float64 `json:"gold_24k_change"`
	Gold22KChange float64 `json:"gold_22k_change"`
	Silver        float64 `json:"silver"`
	SilverChange  float64 `json:"silver_change"`
}

func (f *GoldRatesAdapter) Fetch(ctx context.Context, symbols []string) ([]model.Quote, error) {
	var r struct {
		Success bool                 `json:"success"`
		Rates   map[string]cityRates `json:"rates"`
	}
	if err := getJSON(ctx, f.Client, f.BaseURL+"/api/rates", nil, &r); err != nil {
		return nil, batchError(f.Name(), err)
	}
	if !r.Success {
		return nil, newAdapterError(f.Name(), "", ErrProviderUnavailable, fmt.Errorf("success=false"))
	}

	var city *cityRates
	for _, c := range f.Cities {
		if cr, ok := r.Rates[c]; ok {
			city = &cr
			break
		}
	}
	if city == nil {
		return nil, newAdapterError(f.Name(), "", ErrMalformedResponse, fmt.Errorf("no rates for %v", f.Cities))
	}

	now := time.Now()
	available := make(map[string]model.Quote)
	if city.Gold24K > 0 {
		g24 := decimal.NewFromFloat(city.Gold24K)
		available[SymbolGold24K] = metalQuote(SymbolGold24K, f.Name(), g24, city.Gold24KChange, model.UnitPer10Grams, now)
		available[SymbolGold18K] = metalQuote(SymbolGold18K, f.Name(), g24.Mul(purity18K), city.Gold24KChange, model.UnitPer10Grams, now)
	}
	if city.Gold22K > 0 {
		available[SymbolGold22K] = metalQuote(SymbolGold22K, f.Name(), decimal.NewFromFloat(city.Gold22K), city.Gold22KChange, model.UnitPer10Grams, now)
	}
	if city.Silver > 0 {
		available[SymbolSilver] = metalQuote(SymbolSilver, f.Name(), decimal.NewFromFloat(city.Silver), city.SilverChange, model.UnitPerGram, now)
	}
	return pickRequested(available, symbols), nil
}

// GoldAPIAdapter reads the XAU/INR spot from goldapi.io, priced per gram.
type GoldAPIAdapter struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewGoldAPIAdapter creates the goldapi.io adapter.
func NewGoldAPIAdapter(client *http.Client, apiKey string) *GoldAPIAdapter {
	return &GoldAPIAdapter{BaseURL: "https://www.goldapi.io", APIKey: apiKey, Client: client}
}

func (f *GoldAPIAdapter) Name() string { return "goldapi" }

type goldAPIResponse struct {
	Price        float64 `json:"price"` // per troy ounce
	PriceGram24K float64 `json:"price_gram_24k"`
	PriceGram22K float64 `json:"price_gram_22k"`
	PriceGram18K float64 `json:"price_gram_18k"`
	ChangePct    float64 `json:"chp"`
	Timestamp    int64   `json:"timestamp"`
}

func (f *GoldAPIAdapter) Fetch(ctx context.Context, symbols []string) ([]model.Quote, error) {
	header := http.Header{}
	header.Set("x-access-token", f.APIKey)

	var r goldAPIResponse
	if err := getJSON(ctx, f.Client, f.BaseURL+"/api/XAU/INR", header, &r); err != nil {
		return nil, batchError(f.Name(), err)
	}

	gram24 := decimal.NewFromFloat(r.PriceGram24K)
	if gram24.LessThanOrEqual(decimal.Zero) && r.Price > 0 {
		gram24 = decimal.NewFromFloat(r.Price).Div(gramsPerOunce)
	}
	if gram24.LessThanOrEqual(decimal.Zero) {
		return nil, newAdapterError(f.Name(), "", ErrMalformedResponse, fmt.Errorf("no 24k gram price"))
	}
	gram22 := decimal.NewFromFloat(r.PriceGram22K)
	if gram22.LessThanOrEqual(decimal.Zero) {
		gram22 = gram24.Mul(purity22K)
	}
	gram18 := decimal.NewFromFloat(r.PriceGram18K)
	if gram18.LessThanOrEqual(decimal.Zero) {
		gram18 = gram24.Mul(purity18K)
	}

	asOf := time.Now()
	if r.Timestamp > 0 {
		asOf = time.Unix(r.Timestamp, 0)
	}
	available := map[string]model.Quote{
		SymbolGold24K: metalQuote(SymbolGold24K, f.Name(), gram24.Mul(ten), r.ChangePct, model.UnitPer10Grams, asOf),
		SymbolGold22K: metalQuote(SymbolGold22K, f.Name(), gram22.Mul(ten), r.ChangePct, model.UnitPer10Grams, asOf),
		SymbolGold18K: metalQuote(SymbolGold18K, f.Name(), gram18.Mul(ten), r.ChangePct, model.UnitPer10Grams, asOf),
	}
	return pickRequested(available, symbols), nil
}
