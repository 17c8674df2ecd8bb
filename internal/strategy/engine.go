package strategy

import (
	"time"

	"WealthPulse/internal/model"
)

// Engine evaluates an ordered rule list against a portfolio.
type Engine struct {
	Rules []Rule
}

// NewEngine creates an engine with the given rules, or DefaultRules when none.
func NewEngine(rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Engine{Rules: rules}
}

// Evaluate returns the recommendations for the active investments. Every rule
// is checked for every investment, so one investment may yield several
// recommendations. Output is ordered by investment, then by rule.
func (e *Engine) Evaluate(invs []model.Investment, now time.Time) []model.Recommendation {
	recs := []model.Recommendation{}
	for _, inv := range invs {
		if !inv.IsActive {
			continue
		}
		recs = append(recs, e.Apply(NewFacts(inv, now))...)
	}
	return recs
}

// Apply evaluates every rule against one set of facts.
func (e *Engine) Apply(f Facts) []model.Recommendation {
	var recs []model.Recommendation
	for _, r := range e.Rules {
		if r.Match == nil || !r.Match(f) {
			continue
		}
		recs = append(recs, model.Recommendation{
			Type:       r.Type,
			Investment: f.Investment.InstrumentName,
			Message:    r.Message,
			Priority:   r.Priority,
		})
	}
	return recs
}

// ByPriority filters recommendations of one priority, keeping order.
func ByPriority(recs []model.Recommendation, p model.Priority) []model.Recommendation {
	var out []model.Recommendation
	for _, r := range recs {
		if r.Priority == p {
			out = append(out, r)
		}
	}
	return out
}
