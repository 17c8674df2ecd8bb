package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TypeBreakdown aggregates active investments of one InvestmentType.
type TypeBreakdown struct {
	Type              InvestmentType  `json:"type"`
	Count             int             `json:"count"`
	TotalPrincipal    decimal.Decimal `json:"totalPrincipal"`
	TotalCurrentValue decimal.Decimal `json:"totalCurrentValue"`
	TotalProfitLoss   decimal.Decimal `json:"totalProfitLoss"`
	// AvgROI is the simple mean of per-investment ROI, not weighted by size.
	AvgROI float64 `json:"avgROI"`
}

// RiskBreakdown aggregates active investments of one RiskLevel.
type RiskBreakdown struct {
	Risk              RiskLevel       `json:"risk"`
	Count             int             `json:"count"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	AvgExpectedReturn float64         `json:"avgExpectedReturn"`
}

// GoalStatus is the progress of one investment towards its target amount.
type GoalStatus struct {
	InvestmentID   uuid.UUID       `json:"investmentId"`
	InstrumentName string          `json:"instrumentName"`
	TargetAmount   decimal.Decimal `json:"targetAmount"`
	CurrentValue   decimal.Decimal `json:"currentValue"`
	Progress       float64         `json:"progress"` // percent, capped at 100
	Remaining      decimal.Decimal `json:"remaining"`
	DaysToTarget   *int            `json:"daysToTarget,omitempty"`
	Achieved       bool            `json:"achieved"`
}

// GoalSummary rolls up every tracked goal.
type GoalSummary struct {
	Goals         []GoalStatus `json:"goals"`
	TotalGoals    int          `json:"totalGoals"`
	AchievedGoals int          `json:"achievedGoals"`
	AvgProgress   float64      `json:"avgProgress"`
}

// PortfolioSummary is derived from a user's active investments; never persisted.
type PortfolioSummary struct {
	TotalInvestments  int             `json:"totalInvestments"`
	TotalPrincipal    decimal.Decimal `json:"totalPrincipal"`
	TotalCurrentValue decimal.Decimal `json:"totalCurrentValue"`
	TotalProfitLoss   decimal.Decimal `json:"totalProfitLoss"`
	TotalROI          float64         `json:"totalROI"`
	ByType            []TypeBreakdown `json:"performanceByType"`
	ByRisk            []RiskBreakdown `json:"riskDistribution"`
	Goals             GoalSummary     `json:"goals"`
	GeneratedAt       time.Time       `json:"generatedAt"`
}
