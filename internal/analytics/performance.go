package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"WealthPulse/internal/model"
)

// UpdatePerformance records a new valuation: it sets the current value (and
// price, when positive), appends a snapshot and refreshes ActualReturn.
// Every call appends, so repeating a call repeats the snapshot.
func UpdatePerformance(inv *model.Investment, newValue, newPrice decimal.Decimal, now time.Time) model.PerformanceSnapshot {
	inv.CurrentValue = newValue
	if newPrice.IsPositive() {
		inv.CurrentPrice = newPrice
	}

	ret := newValue.Sub(inv.Principal)
	var pct float64
	if !inv.Principal.IsZero() {
		pct = ret.Div(inv.Principal).Mul(hundred).InexactFloat64()
	}
	snap := model.PerformanceSnapshot{Date: now, Value: newValue, Return: ret, ReturnPercentage: pct}
	inv.PerformanceHistory = append(inv.PerformanceHistory, snap)
	inv.ActualReturn = pct
	return snap
}

// Revalue marks investments to market. A holding with a symbol whose quote is
// present gets CurrentPrice = price and CurrentValue = price × quantity; all
// others are returned unchanged. The input slice is not modified.
func Revalue(invs []model.Investment, quotes map[string]model.Quote) []model.Investment {
	out := make([]model.Investment, len(invs))
	for i, inv := range invs {
		out[i] = inv
		if inv.Symbol == "" || !inv.Quantity.IsPositive() {
			continue
		}
		q, ok := quotes[model.NormalizeSymbol(inv.Symbol)]
		if !ok || !q.Valid() {
			continue
		}
		out[i].CurrentPrice = q.Price
		out[i].CurrentValue = q.Price.Mul(inv.Quantity)
	}
	return out
}
