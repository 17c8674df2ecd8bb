// Package analytics computes portfolio metrics. Everything here is pure: the
// current time is passed in and inputs are never mutated, except by
// UpdatePerformance which exists to mutate one investment.
package analytics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"WealthPulse/internal/model"
)

var hundred = decimal.NewFromInt(100)

const daysPerYear = 365.0

// CurrentROI is (current - principal) / principal in percent, and 0 when no
// principal was invested.
func CurrentROI(inv model.Investment) float64 {
	if inv.Principal.IsZero() {
		return 0
	}
	return inv.EffectiveValue().Sub(inv.Principal).Div(inv.Principal).Mul(hundred).InexactFloat64()
}

// ProfitLoss is the absolute gain against principal.
func ProfitLoss(inv model.Investment) decimal.Decimal {
	return inv.EffectiveValue().Sub(inv.Principal)
}

// DaysInvested counts whole days since purchase; a future purchase date is 0.
func DaysInvested(inv model.Investment, now time.Time) int {
	if inv.PurchaseDate.IsZero() || now.Before(inv.PurchaseDate) {
		return 0
	}
	return int(now.Sub(inv.PurchaseDate).Hours() / 24)
}

// AnnualizedReturn is the compound annual growth rate in percent, with a year
// of 365 days. It is 0 when no time has elapsed or nothing was invested.
func AnnualizedReturn(inv model.Investment, now time.Time) float64 {
	if inv.PurchaseDate.IsZero() || !now.After(inv.PurchaseDate) {
		return 0
	}
	years := now.Sub(inv.PurchaseDate).Hours() / 24 / daysPerYear
	if years == 0 || !inv.Principal.IsPositive() {
		return 0
	}
	ratio := inv.EffectiveValue().Div(inv.Principal).InexactFloat64()
	if ratio <= 0 {
		return -100
	}
	return (math.Pow(ratio, 1/years) - 1) * 100
}

// GoalProgress is min(current/target, 1) in percent. ok is false when the
// investment has no positive target.
func GoalProgress(inv model.Investment) (progress float64, ok bool) {
	if !inv.HasGoal() {
		return 0, false
	}
	ratio := inv.EffectiveValue().Div(*inv.TargetAmount).InexactFloat64()
	return math.Min(ratio, 1) * 100, true
}

// mean is the unweighted arithmetic mean, 0 for no values.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// AggregateByType groups investments by type. AvgROI is the plain mean of each
// member's ROI, not weighted by size. Types appear in declaration order and
// types without members are omitted.
func AggregateByType(invs []model.Investment) []model.TypeBreakdown {
	type acc struct {
		b    model.TypeBreakdown
		rois []float64
	}
	groups := make(map[model.InvestmentType]*acc)
	for _, inv := range invs {
		a, ok := groups[inv.Type]
		if !ok {
			a = &acc{b: model.TypeBreakdown{Type: inv.Type}}
			groups[inv.Type] = a
		}
		a.b.Count++
		a.b.TotalPrincipal = a.b.TotalPrincipal.Add(inv.Principal)
		a.b.TotalCurrentValue = a.b.TotalCurrentValue.Add(inv.EffectiveValue())
		a.rois = append(a.rois, CurrentROI(inv))
	}

	out := make([]model.TypeBreakdown, 0, len(groups))
	for _, t := range model.InvestmentTypes {
		if a, ok := groups[t]; ok {
			a.b.TotalProfitLoss = a.b.TotalCurrentValue.Sub(a.b.TotalPrincipal)
			a.b.AvgROI = mean(a.rois)
			out = append(out, a.b)
		}
	}
	return out
}

// AggregateByRisk groups investments by risk level. TotalAmount is the
// invested principal and AvgExpectedReturn the plain mean of expected returns.
func AggregateByRisk(invs []model.Investment) []model.RiskBreakdown {
	type acc struct {
		b        model.RiskBreakdown
		expected []float64
	}
	groups := make(map[model.RiskLevel]*acc)
	for _, inv := range invs {
		a, ok := groups[inv.Risk]
		if !ok {
			a = &acc{b: model.RiskBreakdown{Risk: inv.Risk}}
			groups[inv.Risk] = a
		}
		a.b.Count++
		a.b.TotalAmount = a.b.TotalAmount.Add(inv.Principal)
		a.expected = append(a.expected, inv.ExpectedReturn)
	}

	out := make([]model.RiskBreakdown, 0, len(groups))
	for _, r := range model.RiskLevels {
		if a, ok := groups[r]; ok {
			a.b.AvgExpectedReturn = mean(a.expected)
			out = append(out, a.b)
		}
	}
	return out
}

// Goals reports progress for every investment carrying a target.
func Goals(invs []model.Investment, now time.Time) model.GoalSummary {
	summary := model.GoalSummary{Goals: []model.GoalStatus{}}
	var progress []float64
	for _, inv := range invs {
		p, ok := GoalProgress(inv)
		if !ok {
			continue
		}
		current := inv.EffectiveValue()
		remaining := inv.TargetAmount.Sub(current)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		g := model.GoalStatus{
			InvestmentID:   inv.ID,
			InstrumentName: inv.InstrumentName,
			TargetAmount:   *inv.TargetAmount,
			CurrentValue:   current,
			Progress:       p,
			Remaining:      remaining,
			Achieved:       current.GreaterThanOrEqual(*inv.TargetAmount),
		}
		if inv.TargetDate != nil {
			days := int(math.Ceil(inv.TargetDate.Sub(now).Hours() / 24))
			g.DaysToTarget = &days
		}
		if g.Achieved {
			summary.AchievedGoals++
		}
		progress = append(progress, p)
		summary.Goals = append(summary.Goals, g)
	}
	summary.TotalGoals = len(summary.Goals)
	summary.AvgProgress = mean(progress)
	return summary
}

// Summarize builds the portfolio summary over the active investments.
func Summarize(invs []model.Investment, now time.Time) model.PortfolioSummary {
	active := Active(invs)
	s := model.PortfolioSummary{
		TotalInvestments: len(active),
		ByType:           AggregateByType(active),
		ByRisk:           AggregateByRisk(active),
		Goals:            Goals(active, now),
		GeneratedAt:      now,
	}
	for _, inv := range active {
		s.TotalPrincipal = s.TotalPrincipal.Add(inv.Principal)
		s.TotalCurrentValue = s.TotalCurrentValue.Add(inv.EffectiveValue())
	}
	s.TotalProfitLoss = s.TotalCurrentValue.Sub(s.TotalPrincipal)
	if !s.TotalPrincipal.IsZero() {
		s.TotalROI = s.TotalProfitLoss.Div(s.TotalPrincipal).Mul(hundred).InexactFloat64()
	}
	return s
}

// Active filters out closed investments.
func Active(invs []model.Investment) []model.Investment {
	out := make([]model.Investment, 0, len(invs))
	for _, inv := range invs {
		if inv.IsActive {
			out = append(out, inv)
		}
	}
	return out
}
