// Package cache fronts the collector with a per-dataset TTL cache. Concurrent
// misses for one key share a single upstream load, and a failed refresh falls
// back to the last known-good snapshot.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"WealthPulse/internal/model"
)

// DefaultTTL applies to datasets without an explicit TTL.
const DefaultTTL = 300 * time.Second

// DefaultLoadTimeout bounds one detached load, all adapters included.
const DefaultLoadTimeout = 2 * time.Minute

// DefaultTTLs are the freshness windows per dataset.
var DefaultTTLs = map[model.Dataset]time.Duration{
	model.DatasetEquities: 300 * time.Second,
	model.DatasetIndices:  300 * time.Second,
	model.DatasetFunds:    300 * time.Second,
	model.DatasetGold:     1800 * time.Second,
}

// Key identifies one cached quote set. Build it with NewKey so that the same
// symbols in any order or case map to the same entry.
type Key struct {
	Dataset model.Dataset
	Symbols string // canonical, comma separated
}

// NewKey canonicalizes a dataset and symbol list into a Key.
func NewKey(dataset model.Dataset, symbols []string) Key {
	return Key{Dataset: dataset, Symbols: strings.Join(model.NormalizeSymbols(symbols), ",")}
}

// SymbolList returns the canonical symbols of the key.
func (k Key) SymbolList() []string {
	if k.Symbols == "" {
		return nil
	}
	return strings.Split(k.Symbols, ",")
}

func (k Key) String() string { return string(k.Dataset) + ":" + k.Symbols }

// Loader fetches a quote set from upstream.
type Loader func(ctx context.Context, dataset model.Dataset, symbols []string) (*model.QuoteSet, error)

// Store persists snapshots and serves the latest one when memory has nothing.
type Store interface {
	SaveQuotes(ctx context.Context, key string, set *model.QuoteSet, fetchedAt time.Time) error
	LatestQuotes(ctx context.Context, key string) (*model.QuoteSet, time.Time, error)
}

// Result is what Get hands back.
type Result struct {
	Set       *model.QuoteSet
	FetchedAt time.Time
	// Stale is set when the refresh failed and a previous snapshot is served.
	Stale      bool
	RefreshErr error
}

// entry is immutable once stored.
type entry struct {
	set       *model.QuoteSet
	fetchedAt time.Time
	expiresAt time.Time
}

// Options configures a QuoteCache. Zero values select defaults.
type Options struct {
	TTLs        map[model.Dataset]time.Duration
	LoadTimeout time.Duration
	Store       Store
	// OnStale is called after a stale snapshot was served.
	OnStale func(key Key, fetchedAt time.Time, err error)
	Now     func() time.Time
}

// QuoteCache is safe for concurrent use.
type QuoteCache struct {
	load    Loader
	opts    Options
	log     zerolog.Logger
	entries sync.Map // Key -> *entry
	flights singleflight.Group
}

// New creates a cache in front of load.
func New(load Loader, opts Options, log zerolog.Logger) *QuoteCache {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	return &QuoteCache{load: load, opts: opts, log: log.With().Str("component", "cache").Logger()}
}

// TTL returns the freshness window for a dataset.
func (c *QuoteCache) TTL(dataset model.Dataset) time.Duration {
	if ttl, ok := c.opts.TTLs[dataset]; ok && ttl > 0 {
		return ttl
	}
	if ttl, ok := DefaultTTLs[dataset]; ok {
		return ttl
	}
	return DefaultTTL
}

func (c *QuoteCache) lookup(key Key) (*entry, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

func (e *entry) fresh(now time.Time) bool { return now.Before(e.expiresAt) }

// Get returns the quote set for key, loading it when absent or expired.
// Concurrent callers of one key share a single load; a caller whose ctx ends
// stops waiting but does not cancel the load for the others.
func (c *QuoteCache) Get(ctx context.Context, key Key) (Result, error) {
	if e, ok := c.lookup(key); ok && e.fresh(c.opts.Now()) {
		return Result{Set: e.set, FetchedAt: e.fetchedAt}, nil
	}
	if key.Symbols == "" {
		return Result{}, fmt.Errorf("cache %s: empty symbol list", key.Dataset)
	}

	detached := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key.String(), func() (any, error) {
		return c.refresh(detached, key)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	}
}

// refresh runs inside the single flight for key, so stores to key are serialized.
func (c *QuoteCache) refresh(ctx context.Context, key Key) (Result, error) {
	// A flight that just finished may already have stored a fresh entry.
	if e, ok := c.lookup(key); ok && e.fresh(c.opts.Now()) {
		return Result{Set: e.set, FetchedAt: e.fetchedAt}, nil
	}

	lctx, cancel := context.WithTimeout(ctx, c.opts.LoadTimeout)
	defer cancel()

	set, err := c.load(lctx, key.Dataset, key.SymbolList())
	if err == nil && set != nil {
		now := c.opts.Now()
		c.entries.Store(key, &entry{set: set, fetchedAt: now, expiresAt: now.Add(c.TTL(key.Dataset))})
		c.save(ctx, key, set, now)
		return Result{Set: set, FetchedAt: now}, nil
	}
	if err == nil {
		err = errors.New("loader returned no data")
	}

	if e, ok := c.lookup(key); ok {
		c.served(key, e.fetchedAt, err)
		return Result{Set: e.set, FetchedAt: e.fetchedAt, Stale: true, RefreshErr: err}, nil
	}
	if c.opts.Store != nil {
		set, fetchedAt, serr := c.opts.Store.LatestQuotes(ctx, key.String())
		if serr == nil && set != nil {
			// Keep it in memory as already expired so the next Get retries upstream.
			c.entries.Store(key, &entry{set: set, fetchedAt: fetchedAt, expiresAt: fetchedAt})
			c.served(key, fetchedAt, err)
			return Result{Set: set, FetchedAt: fetchedAt, Stale: true, RefreshErr: err}, nil
		}
		if serr != nil {
			c.log.Debug().Err(serr).Str("key", key.String()).Msg("no persisted snapshot")
		}
	}
	return Result{}, err
}

func (c *QuoteCache) served(key Key, fetchedAt time.Time, err error) {
	c.log.Warn().Err(err).Str("key", key.String()).Time("fetched_at", fetchedAt).Msg("refresh failed, serving stale quotes")
	if c.opts.OnStale != nil {
		c.opts.OnStale(key, fetchedAt, err)
	}
}

func (c *QuoteCache) save(ctx context.Context, key Key, set *model.QuoteSet, at time.Time) {
	if c.opts.Store == nil {
		return
	}
	if err := c.opts.Store.SaveQuotes(ctx, key.String(), set, at); err != nil {
		c.log.Warn().Err(err).Str("key", key.String()).Msg("persist snapshot failed")
	}
}

// Peek returns the in-memory entry without loading. Stale reports expiry.
func (c *QuoteCache) Peek(key Key) (Result, bool) {
	e, ok := c.lookup(key)
	if !ok {
		return Result{}, false
	}
	return Result{Set: e.set, FetchedAt: e.fetchedAt, Stale: !e.fresh(c.opts.Now())}, true
}

// Invalidate drops the in-memory entry for key.
func (c *QuoteCache) Invalidate(key Key) {
	c.entries.Delete(key)
}
