package collector

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"WealthPulse/internal/model"
)

// ProbeResult is the connectivity outcome of one adapter.
type ProbeResult struct {
	Dataset model.Dataset `json:"dataset"`
	Adapter string        `json:"adapter"`
	OK      bool          `json:"ok"`
	Quotes  int           `json:"quotes"`
	Latency time.Duration `json:"latencyNs"`
	Error   string        `json:"error,omitempty"`
}

// probeSymbols are cheap, always-listed symbols per dataset.
var probeSymbols = map[model.Dataset][]string{
	model.DatasetEquities: {"RELIANCE"},
	model.DatasetIndices:  {"NIFTY"},
	model.DatasetGold:     {SymbolGold24K},
}

// Probe calls every configured adapter once, without retries, and reports
// which providers currently answer. fundCode is used for the funds dataset.
func (c *Collector) Probe(ctx context.Context, fundCode string) []ProbeResult {
	var (
		mu      sync.Mutex
		results []ProbeResult
	)
	var g errgroup.Group
	for _, ds := range model.Datasets {
		symbols := probeSymbols[ds]
		if ds == model.DatasetFunds {
			if fundCode == "" {
				continue
			}
			symbols = []string{fundCode}
		}
		for _, a := range c.Waterfalls[ds] {
			g.Go(func() error {
				start := time.Now()
				quotes, err := c.attempt(ctx, a, symbols)
				r := ProbeResult{Dataset: ds, Adapter: a.Name(), Quotes: len(quotes), Latency: time.Since(start)}
				switch {
				case err != nil:
					r.Error = err.Error()
				case len(quotes) == 0:
					r.Error = "no quotes"
				default:
					r.OK = true
				}
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	sortProbeResults(results, c.Waterfalls)
	return results
}

// sortProbeResults orders results by dataset, then waterfall position.
func sortProbeResults(results []ProbeResult, waterfalls map[model.Dataset][]Adapter) {
	rank := make(map[string]int)
	i := 0
	for _, ds := range model.Datasets {
		for _, a := range waterfalls[ds] {
			rank[string(ds)+"/"+a.Name()] = i
			i++
		}
	}
	key := func(r ProbeResult) int { return rank[string(r.Dataset)+"/"+r.Adapter] }
	slices.SortFunc(results, func(a, b ProbeResult) int { return cmp.Compare(key(a), key(b)) })
}
