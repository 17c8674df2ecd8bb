package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Dataset names a logical group of quotes that is fetched, cached and served together.
type Dataset string

const (
	DatasetEquities Dataset = "equities"
	DatasetIndices  Dataset = "indices"
	DatasetGold     Dataset = "gold"
	DatasetFunds    Dataset = "funds"
)

// Datasets lists every known dataset in a stable order.
var Datasets = []Dataset{DatasetEquities, DatasetIndices, DatasetGold, DatasetFunds}

// ParseDataset validates a dataset name coming from configuration or a request.
func ParseDataset(s string) (Dataset, error) {
	d := Dataset(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Datasets {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown dataset %q", s)
}

// Unit is the denomination a quote price is expressed in.
type Unit string

const (
	UnitPerShare   Unit = "per-share"
	UnitPerUnit    Unit = "per-unit" // index points, fund NAV
	UnitPerGram    Unit = "per-gram"
	UnitPer10Grams Unit = "per-10-grams"
)

// DefaultCurrency is assumed when a provider omits the currency.
const DefaultCurrency = "INR"

// IST is Indian Standard Time, the zone exchange and NAV timestamps are quoted in.
var IST = time.FixedZone("IST", 5*3600+1800)

// Quote is a normalized market datum produced by exactly one adapter.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name,omitempty"`
	Price         decimal.Decimal `json:"price"`
	ChangePercent float64         `json:"changePercent"`
	AsOf          time.Time       `json:"asOf"`
	Source        string          `json:"source"`
	Unit          Unit            `json:"unit"`
	Currency      string          `json:"currency"`
}

// Valid reports whether the quote carries a usable price.
func (q Quote) Valid() bool {
	return q.Symbol != "" && q.Price.GreaterThan(decimal.Zero)
}

// QuoteSet is the result of one orchestrator call for a dataset.
type QuoteSet struct {
	Dataset Dataset   `json:"dataset"`
	Quotes  []Quote   `json:"quotes"`
	AsOf    time.Time `json:"asOf"`
	Source  string    `json:"source"`
}

// Lookup returns the quote for symbol, if present.
func (s *QuoteSet) Lookup(symbol string) (Quote, bool) {
	if s == nil {
		return Quote{}, false
	}
	symbol = NormalizeSymbol(symbol)
	for _, q := range s.Quotes {
		if q.Symbol == symbol {
			return q, true
		}
	}
	return Quote{}, false
}

// NormalizeSymbol returns the provider-agnostic form of a symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NormalizeSymbols upper-cases, de-duplicates and sorts a symbol list, dropping blanks.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		n := NormalizeSymbol(s)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// QuoteIndex maps symbols to quotes across any number of sets. Later sets win.
func QuoteIndex(sets ...*QuoteSet) map[string]Quote {
	idx := make(map[string]Quote)
	for _, s := range sets {
		if s == nil {
			continue
		}
		for _, q := range s.Quotes {
			idx[q.Symbol] = q
		}
	}
	return idx
}
