package strategy

import (
	"time"

	"github.com/shopspring/decimal"

	"WealthPulse/internal/analytics"
	"WealthPulse/internal/model"
)

// Facts is the frozen view of one investment that rules match against.
type Facts struct {
	Investment   model.Investment
	ROI          float64 // percent
	DaysInvested int
	CurrentValue decimal.Decimal
}

// NewFacts derives the rule inputs for inv at now.
func NewFacts(inv model.Investment, now time.Time) Facts {
	return Facts{
		Investment:   inv,
		ROI:          analytics.CurrentROI(inv),
		DaysInvested: analytics.DaysInvested(inv, now),
		CurrentValue: inv.EffectiveValue(),
	}
}

// Rule is one declarative recommendation: when Match holds, a recommendation
// of Type and Priority carrying Message is emitted.
type Rule struct {
	Name     string
	Type     model.RecommendationType
	Priority model.Priority
	Message  string
	Match    func(Facts) bool
}

// Thresholds used by the default rules.
const (
	LossAlertROI       = -20.0
	ProfitTakingROI    = 50.0
	ProfitTakingMinAge = 365 // days
)

// DefaultRules are evaluated in this order for every investment.
var DefaultRules = []Rule{
	{
		Name:     "loss-alert",
		Type:     model.RecommendAlert,
		Priority: model.PriorityHigh,
		Message:  "Consider reviewing this investment - significant loss detected",
		Match:    func(f Facts) bool { return f.ROI < LossAlertROI },
	},
	{
		Name:     "profit-taking",
		Type:     model.RecommendProfitTaking,
		Priority: model.PriorityMedium,
		Message:  "Consider taking profits - excellent performance achieved",
		Match: func(f Facts) bool {
			return f.ROI > ProfitTakingROI && f.DaysInvested > ProfitTakingMinAge
		},
	},
	{
		Name:     "goal-achieved",
		Type:     model.RecommendGoalAchieved,
		Priority: model.PriorityLow,
		Message:  "Investment goal achieved! Consider your next step",
		Match: func(f Facts) bool {
			return f.Investment.HasGoal() && f.CurrentValue.GreaterThanOrEqual(*f.Investment.TargetAmount)
		},
	},
}
