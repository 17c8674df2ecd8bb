package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"WealthPulse/internal/model"
)

// fakeClock is advanced manually by tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 18, 9, 15, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingLoader returns a fresh set per call, or err when set.
type countingLoader struct {
	calls atomic.Int64
	err   atomic.Pointer[error]
}

func (l *countingLoader) failWith(err error) { l.err.Store(&err) }

func (l *countingLoader) Load(_ context.Context, ds model.Dataset, symbols []string) (*model.QuoteSet, error) {
	n := l.calls.Add(1)
	if e := l.err.Load(); e != nil && *e != nil {
		return nil, *e
	}
	quotes := make([]model.Quote, len(symbols))
	for i, s := range symbols {
		quotes[i] = model.Quote{Symbol: s, Price: decimal.NewFromInt(100 + n), Source: "test"}
	}
	return &model.QuoteSet{Dataset: ds, Quotes: quotes, Source: "test"}, nil
}

func quietLog() zerolog.Logger { return zerolog.New(nil).Level(zerolog.Disabled) }

func TestNewKey_Canonical(t *testing.T) {
	a := NewKey(model.DatasetEquities, []string{"tcs", "INFY", "TCS "})
	b := NewKey(model.DatasetEquities, []string{"INFY", "TCS"})
	assert.Equal(t, a, b)
	assert.Equal(t, "equities:INFY,TCS", a.String())
	assert.Equal(t, []string{"INFY", "TCS"}, a.SymbolList())
	assert.NotEqual(t, a, NewKey(model.DatasetIndices, []string{"INFY", "TCS"}))
}

func TestGet_ServesUntilTTLThenRefetches(t *testing.T) {
	clock := newFakeClock()
	loader := &countingLoader{}
	c := New(loader.Load, Options{
		TTLs: map[model.Dataset]time.Duration{model.DatasetEquities: 300 * time.Second},
		Now:  clock.Now,
	}, quietLog())
	key := NewKey(model.DatasetEquities, []string{"RELIANCE"})

	first, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), loader.calls.Load())

	clock.Advance(299 * time.Second)
	r, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), loader.calls.Load(), "entry is fresh at 299s")
	assert.Same(t, first.Set, r.Set)
	assert.False(t, r.Stale)

	clock.Advance(2 * time.Second)
	r, err = c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), loader.calls.Load(), "entry expired at 301s")
	assert.NotSame(t, first.Set, r.Set)
	assert.Equal(t, clock.Now(), r.FetchedAt)
}

func TestGet_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int64
	load := func(ctx context.Context, ds model.Dataset, symbols []string) (*model.QuoteSet, error) {
		calls.Add(1)
		<-release
		return &model.QuoteSet{Dataset: ds, Quotes: []model.Quote{{Symbol: "TCS", Price: decimal.NewFromInt(1)}}}, nil
	}
	c := New(load, Options{}, quietLog())
	key := NewKey(model.DatasetEquities, []string{"TCS"})

	const callers = 20
	var wg sync.WaitGroup
	sets := make([]*model.QuoteSet, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.Get(context.Background(), key)
			sets[i], errs[i] = r.Set, err
		}()
	}

	// Let the callers pile up on the flight before releasing it.
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Same(t, sets[0], sets[i], "all callers observe the same result")
	}
}

func TestGet_CallerCancellationDoesNotAbortSharedLoad(t *testing.T) {
	release := make(chan struct{})
	var loadCanceled atomic.Bool
	load := func(ctx context.Context, ds model.Dataset, symbols []string) (*model.QuoteSet, error) {
		<-release
		loadCanceled.Store(ctx.Err() != nil)
		return &model.QuoteSet{Dataset: ds, Quotes: []model.Quote{{Symbol: "TCS", Price: decimal.NewFromInt(1)}}}, nil
	}
	c := New(load, Options{}, quietLog())
	key := NewKey(model.DatasetEquities, []string{"TCS"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, key)
		done <- err
	}()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	r, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, r.Set)
	assert.False(t, loadCanceled.Load(), "load ran to completion with a live context")
}

func TestGet_StaleServeOnRefreshFailure(t *testing.T) {
	clock := newFakeClock()
	loader := &countingLoader{}
	var staleKeys []Key
	c := New(loader.Load, Options{
		Now: clock.Now,
		OnStale: func(key Key, _ time.Time, _ error) {
			staleKeys = append(staleKeys, key)
		},
	}, quietLog())
	key := NewKey(model.DatasetGold, []string{"GOLD-24K"})

	first, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	fetchedAt := first.FetchedAt

	clock.Advance(c.TTL(model.DatasetGold) + time.Second)
	upstream := errors.New("all providers down")
	loader.failWith(upstream)

	r, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, r.Stale)
	assert.Equal(t, fetchedAt, r.FetchedAt)
	assert.Same(t, first.Set, r.Set)
	assert.ErrorIs(t, r.RefreshErr, upstream)
	assert.Equal(t, []Key{key}, staleKeys)

	// The stale entry is not re-armed: the next call tries upstream again.
	_, _ = c.Get(context.Background(), key)
	assert.Equal(t, int64(3), loader.calls.Load())
}

func TestGet_ColdFailureSurfacesError(t *testing.T) {
	loader := &countingLoader{}
	upstream := errors.New("no data available")
	loader.failWith(upstream)
	c := New(loader.Load, Options{}, quietLog())

	_, err := c.Get(context.Background(), NewKey(model.DatasetFunds, []string{"120503"}))
	assert.ErrorIs(t, err, upstream)
}

func TestGet_EmptyKey(t *testing.T) {
	c := New((&countingLoader{}).Load, Options{}, quietLog())
	_, err := c.Get(context.Background(), NewKey(model.DatasetEquities, nil))
	assert.Error(t, err)
}

// mockStore is a testify mock of Store.
type mockStore struct{ mock.Mock }

func (m *mockStore) SaveQuotes(ctx context.Context, key string, set *model.QuoteSet, at time.Time) error {
	return m.Called(ctx, key, set, at).Error(0)
}

func (m *mockStore) LatestQuotes(ctx context.Context, key string) (*model.QuoteSet, time.Time, error) {
	args := m.Called(ctx, key)
	set, _ := args.Get(0).(*model.QuoteSet)
	return set, args.Get(1).(time.Time), args.Error(2)
}

func TestGet_PersistsAndFallsBackToStore(t *testing.T) {
	clock := newFakeClock()
	key := NewKey(model.DatasetIndices, []string{"NIFTY"})
	persisted := &model.QuoteSet{Dataset: model.DatasetIndices, Quotes: []model.Quote{{Symbol: "NIFTY", Price: decimal.NewFromInt(25000)}}}
	persistedAt := clock.Now().Add(-time.Hour)

	store := &mockStore{}
	store.On("LatestQuotes", mock.Anything, "indices:NIFTY").Return(persisted, persistedAt, nil).Once()
	store.On("SaveQuotes", mock.Anything, "indices:NIFTY", mock.Anything, mock.Anything).Return(nil).Once()

	loader := &countingLoader{}
	loader.failWith(errors.New("down"))
	c := New(loader.Load, Options{Store: store, Now: clock.Now}, quietLog())

	r, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, r.Stale)
	assert.Same(t, persisted, r.Set)
	assert.Equal(t, persistedAt, r.FetchedAt)

	loader.failWith(nil)
	r, err = c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, r.Stale)
	store.AssertExpectations(t)
}

func TestPeekAndInvalidate(t *testing.T) {
	clock := newFakeClock()
	loader := &countingLoader{}
	c := New(loader.Load, Options{Now: clock.Now}, quietLog())
	key := NewKey(model.DatasetEquities, []string{"ITC"})

	_, ok := c.Peek(key)
	assert.False(t, ok)

	_, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	r, ok := c.Peek(key)
	require.True(t, ok)
	assert.False(t, r.Stale)

	clock.Advance(DefaultTTL)
	r, _ = c.Peek(key)
	assert.True(t, r.Stale)

	c.Invalidate(key)
	_, ok = c.Peek(key)
	assert.False(t, ok)
	assert.Equal(t, int64(1), loader.calls.Load(), "peek never loads")
}

func TestTTL_Defaults(t *testing.T) {
	c := New(nil, Options{TTLs: map[model.Dataset]time.Duration{model.DatasetEquities: time.Minute}}, quietLog())
	assert.Equal(t, time.Minute, c.TTL(model.DatasetEquities))
	assert.Equal(t, 1800*time.Second, c.TTL(model.DatasetGold))
	assert.Equal(t, DefaultTTL, c.TTL(model.DatasetFunds))
}
