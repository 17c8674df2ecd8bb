package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalize_FillsEnumDefaults(t *testing.T) {
	inv := Investment{Type: "stocks", Symbol: " tcs "}
	inv.Normalize()

	assert.Equal(t, TypeOther, inv.Type)
	assert.Equal(t, RiskMedium, inv.Risk)
	assert.Equal(t, "TCS", inv.Symbol)
	assert.True(t, inv.Quantity.IsZero(), "missing quantity must stay zero so the holding is not revalued")
	assert.Equal(t, uuid.Nil, inv.ID)
}

func TestNormalize_KeepsKnownValues(t *testing.T) {
	inv := Investment{Type: "ETF", Risk: "Very_High", Quantity: decimal.NewFromInt(3)}
	inv.Normalize()

	assert.Equal(t, TypeETF, inv.Type)
	assert.Equal(t, RiskVeryHigh, inv.Risk)
	assert.Equal(t, "3", inv.Quantity.String())
}

func TestNormalizeInvestments_Copies(t *testing.T) {
	in := []Investment{{Type: ""}}
	out := NormalizeInvestments(in)

	assert.Equal(t, TypeOther, out[0].Type)
	assert.Equal(t, InvestmentType(""), in[0].Type)
}
