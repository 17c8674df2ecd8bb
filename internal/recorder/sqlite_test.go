package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WealthPulse/internal/cache"
	"WealthPulse/internal/model"
)

var _ cache.Store = (*SQLiteRecorder)(nil)
var _ cache.Store = (*NoopRecorder)(nil)

func openTest(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "wealthpulse.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func goldSet(price int64, asOf time.Time) *model.QuoteSet {
	return &model.QuoteSet{
		Dataset: model.DatasetGold,
		Source:  "ibja",
		AsOf:    asOf,
		Quotes: []model.Quote{
			{Symbol: "GOLD24K", Price: decimal.NewFromInt(price), Source: "ibja", Unit: model.UnitPer10Grams, Currency: "INR", AsOf: asOf},
			{Symbol: "SILVER", Price: decimal.NewFromInt(95), Source: "ibja", Unit: model.UnitPerGram, Currency: "INR", AsOf: asOf},
		},
	}
}

func TestSaveAndLatestQuotes(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	_, _, err := r.LatestQuotes(ctx, "gold:GOLD24K,SILVER")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.SaveQuotes(ctx, "gold:GOLD24K,SILVER", goldSet(72000, t0), t0))
	require.NoError(t, r.SaveQuotes(ctx, "gold:GOLD24K,SILVER", goldSet(72500, t0.Add(time.Hour)), t0.Add(time.Hour)))

	set, fetchedAt, err := r.LatestQuotes(ctx, "gold:GOLD24K,SILVER")
	require.NoError(t, err)
	assert.True(t, fetchedAt.Equal(t0.Add(time.Hour)))
	assert.Equal(t, "ibja", set.Source)
	q, ok := set.Lookup("gold24k")
	require.True(t, ok)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(72500)))
	assert.Equal(t, model.UnitPer10Grams, q.Unit)

	_, _, err = r.LatestQuotes(ctx, "gold:GOLD24K")
	assert.ErrorIs(t, err, ErrNotFound, "keys are exact")
}

func TestQuoteHistory(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	for i := range 3 {
		at := t0.Add(time.Duration(i) * time.Hour)
		require.NoError(t, r.SaveQuotes(ctx, "gold:GOLD24K,SILVER", goldSet(72000+int64(i)*100, at), at))
	}

	hist, err := r.QuoteHistory(ctx, model.DatasetGold, "gold24k", 2)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "72200", hist[0].Price.String())
	assert.Equal(t, "72100", hist[1].Price.String())
	assert.Equal(t, "ibja", hist[0].Source)

	hist, err = r.QuoteHistory(ctx, model.DatasetEquities, "GOLD24K", 0)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestPerformanceHistory(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()
	id := uuid.New()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	snaps := []model.PerformanceSnapshot{
		{Date: t0.Add(24 * time.Hour), Value: decimal.NewFromInt(1100), Return: decimal.NewFromInt(100), ReturnPercentage: 10},
		{Date: t0, Value: decimal.NewFromInt(1000), Return: decimal.Zero, ReturnPercentage: 0},
	}
	for _, s := range snaps {
		require.NoError(t, r.RecordPerformance(ctx, id, s))
	}
	require.NoError(t, r.RecordPerformance(ctx, uuid.New(), snaps[0]))

	got, err := r.PerformanceHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Date.Equal(t0), "ordered by date")
	assert.Equal(t, "1100", got[1].Value.String())
	assert.Equal(t, "100", got[1].Return.String())
	assert.InDelta(t, 10, got[1].ReturnPercentage, 1e-9)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wealthpulse.db")
	ctx := context.Background()
	now := time.Now().UTC()

	r, err := NewSQLiteRecorder(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, r.SaveQuotes(ctx, "k", goldSet(70000, now), now))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()
	set, _, err := r.LatestQuotes(ctx, "k")
	require.NoError(t, err)
	assert.Len(t, set.Quotes, 2)
}

func TestNoopRecorder(t *testing.T) {
	n := NewNoopRecorder()
	ctx := context.Background()
	assert.NoError(t, n.SaveQuotes(ctx, "k", goldSet(1, time.Now()), time.Now()))
	_, _, err := n.LatestQuotes(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, n.Close())
}
