package model

// RecommendationType indicates which rule produced a recommendation.
type RecommendationType string

const (
	RecommendAlert        RecommendationType = "alert"
	RecommendProfitTaking RecommendationType = "profit_taking"
	RecommendGoalAchieved RecommendationType = "goal_achieved"
)

// Priority orders recommendations for display.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is generated fresh per request and never persisted.
type Recommendation struct {
	Type       RecommendationType `json:"type"`
	Investment string             `json:"investment"`
	Message    string             `json:"message"`
	Priority   Priority           `json:"priority"`
}
