package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvestmentType classifies a holding.
type InvestmentType string

const (
	TypeEquities     InvestmentType = "equities"
	TypeBonds        InvestmentType = "bonds"
	TypeMutualFunds  InvestmentType = "mutual_funds"
	TypeETF          InvestmentType = "etf"
	TypeCrypto       InvestmentType = "crypto"
	TypeRealEstate   InvestmentType = "real_estate"
	TypeCommodities  InvestmentType = "commodities"
	TypeFixedDeposit InvestmentType = "fixed_deposit"
	TypeOther        InvestmentType = "other"
)

// InvestmentTypes lists the types in their canonical report order.
var InvestmentTypes = []InvestmentType{
	TypeEquities, TypeBonds, TypeMutualFunds, TypeETF, TypeCrypto,
	TypeRealEstate, TypeCommodities, TypeFixedDeposit, TypeOther,
}

// ParseInvestmentType maps unknown or empty values to TypeOther.
func ParseInvestmentType(s string) InvestmentType {
	t := InvestmentType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range InvestmentTypes {
		if t == known {
			return t
		}
	}
	return TypeOther
}

// RiskLevel is the user-declared risk of a holding.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// RiskLevels lists the levels from lowest to highest.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskVeryHigh}

// ParseRiskLevel maps unknown or empty values to RiskMedium.
func ParseRiskLevel(s string) RiskLevel {
	r := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range RiskLevels {
		if r == known {
			return r
		}
	}
	return RiskMedium
}

// PerformanceSnapshot is one entry of an investment's append-only value log.
type PerformanceSnapshot struct {
	Date             time.Time       `json:"date"`
	Value            decimal.Decimal `json:"value"`
	Return           decimal.Decimal `json:"return"`
	ReturnPercentage float64         `json:"returnPercentage"`
}

// Investment is a single user holding.
type Investment struct {
	ID             uuid.UUID       `json:"id"`
	UserID         string          `json:"userId,omitempty"`
	InstrumentName string          `json:"instrumentName"`
	Symbol         string          `json:"symbol,omitempty"`
	Type           InvestmentType  `json:"investmentType"`
	Risk           RiskLevel       `json:"riskLevel"`
	Principal      decimal.Decimal `json:"principalAmount"`
	CurrentValue   decimal.Decimal `json:"currentValue"`
	Quantity       decimal.Decimal `json:"quantity"`
	PurchasePrice  decimal.Decimal `json:"purchasePrice"`
	CurrentPrice   decimal.Decimal `json:"currentPrice"`
	PurchaseDate   time.Time       `json:"purchaseDate"`
	MaturityDate   *time.Time      `json:"maturityDate,omitempty"`
	ExpectedReturn float64         `json:"expectedReturn"` // annual, percent
	ActualReturn   float64         `json:"actualReturn"`   // percent, set by performance updates

	TargetAmount *decimal.Decimal `json:"targetAmount,omitempty"`
	TargetDate   *time.Time       `json:"targetDate,omitempty"`
	GoalAchieved bool             `json:"goalAchieved"`

	IsActive           bool                  `json:"isActive"`
	PerformanceHistory []PerformanceSnapshot `json:"performanceHistory"`
}

// EffectiveValue returns the current value, falling back to principal when no
// valuation has been recorded yet.
func (inv *Investment) EffectiveValue() decimal.Decimal {
	if inv.CurrentValue.IsZero() {
		return inv.Principal
	}
	return inv.CurrentValue
}

// HasGoal reports whether a positive target amount is tracked.
func (inv *Investment) HasGoal() bool {
	return inv.TargetAmount != nil && inv.TargetAmount.GreaterThan(decimal.Zero)
}

// Normalize fills enum defaults: unknown or empty types become TypeOther and
// risk levels RiskMedium. Quantity and ID are left as given; a holding without
// a quantity is never marked to market.
func (inv *Investment) Normalize() {
	inv.Type = ParseInvestmentType(string(inv.Type))
	inv.Risk = ParseRiskLevel(string(inv.Risk))
	inv.Symbol = NormalizeSymbol(inv.Symbol)
}

// NormalizeInvestments returns normalized copies of invs.
func NormalizeInvestments(invs []Investment) []Investment {
	out := make([]Investment, len(invs))
	for i, inv := range invs {
		inv.Normalize()
		out[i] = inv
	}
	return out
}
