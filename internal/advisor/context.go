package advisor

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"WealthPulse/internal/model"
)

const topHoldingsCount = 3

// Context is the portfolio digest sent along with a question.
type Context struct {
	TotalValue    decimal.Decimal `json:"totalValue"`
	HoldingsCount int             `json:"holdingsCount"`
	SectorList    []string        `json:"sectorList"`
	TopHoldings   []string        `json:"topHoldings"`
}

var sectors = map[string]string{
	"RELIANCE":   "Oil & Gas",
	"TCS":        "IT Services",
	"INFY":       "IT Services",
	"HDFCBANK":   "Banking",
	"SBIN":       "Banking",
	"ITC":        "FMCG",
	"HINDUNILVR": "FMCG",
	"BHARTIARTL": "Telecom",
	"KOTAKBANK":  "Banking",
	"LT":         "Infrastructure",
}

// SectorOf classifies a holding. Listed equities use the sector table, funds
// their category, everything else is "Others".
func SectorOf(inv model.Investment) string {
	if s, ok := sectors[model.NormalizeSymbol(inv.Symbol)]; ok {
		return s
	}
	if inv.Type == model.TypeMutualFunds {
		return FundCategory(inv.InstrumentName)
	}
	return "Others"
}

// FundCategory derives a mutual fund's category from its scheme name.
func FundCategory(schemeName string) string {
	name := strings.ToLower(schemeName)
	switch {
	case strings.Contains(name, "large cap"):
		return "Large Cap"
	case strings.Contains(name, "mid cap"):
		return "Mid Cap"
	case strings.Contains(name, "small cap"):
		return "Small Cap"
	case strings.Contains(name, "flexi cap"):
		return "Flexi Cap"
	case strings.Contains(name, "debt"), strings.Contains(name, "income"):
		return "Debt"
	}
	return "Equity"
}

// BuildContext digests the active investments: total value, the three largest
// holdings by value and the distinct sectors in first-seen order.
func BuildContext(invs []model.Investment) Context {
	c := Context{SectorList: []string{}, TopHoldings: []string{}}
	var active []model.Investment
	for _, inv := range invs {
		if !inv.IsActive {
			continue
		}
		active = append(active, inv)
		c.TotalValue = c.TotalValue.Add(inv.EffectiveValue())
		if s := SectorOf(inv); !slices.Contains(c.SectorList, s) {
			c.SectorList = append(c.SectorList, s)
		}
	}
	c.HoldingsCount = len(active)

	slices.SortStableFunc(active, func(a, b model.Investment) int {
		return b.EffectiveValue().Cmp(a.EffectiveValue())
	})
	for _, inv := range active[:min(topHoldingsCount, len(active))] {
		label := inv.Symbol
		if label == "" {
			label = inv.InstrumentName
		}
		c.TopHoldings = append(c.TopHoldings, label)
	}
	return c
}
