// Package scheduler keeps the quote cache warm on cron schedules and alerts
// the operator when a dataset degrades or recovers.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"WealthPulse/internal/cache"
	"WealthPulse/internal/collector"
	"WealthPulse/internal/model"
	"WealthPulse/internal/notifier"
)

// QuoteSource is the cache read the refresh jobs go through.
type QuoteSource interface {
	Get(ctx context.Context, key cache.Key) (cache.Result, error)
}

// Prober reports provider connectivity.
type Prober interface {
	Probe(ctx context.Context, fundCode string) []collector.ProbeResult
}

// health is the last observed state of a dataset.
type health int

const (
	healthy health = iota
	stale
	down
)

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Quotes    QuoteSource
	Prober    Prober
	Notifier  notifier.Notifier
	FundCodes []string
	Ctx       context.Context

	log   zerolog.Logger
	now   func() time.Time
	mu    sync.Mutex
	state map[model.Dataset]health
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, quotes QuoteSource, prober Prober, n notifier.Notifier, fundCodes []string, log zerolog.Logger) *Scheduler {
	if n == nil {
		n = notifier.Noop{}
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Quotes:    quotes,
		Prober:    prober,
		Notifier:  n,
		FundCodes: fundCodes,
		Ctx:       ctx,
		log:       log.With().Str("component", "scheduler").Logger(),
		now:       time.Now,
		state:     make(map[model.Dataset]health),
	}
}

// RegisterAll registers one refresh job per dataset and, when probeCron is
// set, the provider probe.
func (s *Scheduler) RegisterAll(refresh map[string]string, probeCron string) error {
	for name, spec := range refresh {
		ds, err := model.ParseDataset(name)
		if err != nil {
			return fmt.Errorf("register refresh: %w", err)
		}
		if _, err := s.Cron.AddFunc(spec, func() { s.Refresh(ds) }); err != nil {
			return fmt.Errorf("register %s refresh: %w", ds, err)
		}
	}
	if probeCron != "" {
		if _, err := s.Cron.AddFunc(probeCron, s.ProbeNow); err != nil {
			return fmt.Errorf("register probe: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow refreshes every dataset immediately (RUN_ON_START).
func (s *Scheduler) RunNow() {
	for _, ds := range model.Datasets {
		s.Refresh(ds)
	}
}

// Refresh loads the default symbol set of a dataset through the cache and
// reports health transitions.
func (s *Scheduler) Refresh(ds model.Dataset) {
	symbols := collector.DefaultSymbols(ds, s.FundCodes)
	if len(symbols) == 0 {
		s.log.Debug().Str("dataset", string(ds)).Msg("no symbols to refresh")
		return
	}
	start := s.now()
	res, err := s.Quotes.Get(s.Ctx, cache.NewKey(ds, symbols))
	switch {
	case err != nil:
		s.log.Error().Err(err).Str("dataset", string(ds)).Msg("refresh failed")
		if s.transition(ds, down) {
			s.trySend(notifier.FormatOutage(ds, err))
		}
	case res.Stale:
		s.log.Warn().Err(res.RefreshErr).Str("dataset", string(ds)).Time("fetched_at", res.FetchedAt).Msg("refresh served stale data")
		if s.transition(ds, stale) {
			s.trySend(notifier.FormatStaleAlert(ds, res.FetchedAt, res.RefreshErr, s.now()))
		}
	default:
		s.log.Info().Str("dataset", string(ds)).Str("source", res.Set.Source).
			Int("quotes", len(res.Set.Quotes)).Dur("took", s.now().Sub(start)).Msg("dataset refreshed")
		if s.transition(ds, healthy) {
			s.trySend(notifier.FormatRecovered(ds, res.Set.Source))
		}
	}
}

// transition records the new health of ds and reports whether an alert is
// due. Only a change is alerted; a stale dataset going down is alerted again.
func (s *Scheduler) transition(ds model.Dataset, h health) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state[ds]
	s.state[ds] = h
	return prev != h
}

// ProbeNow checks every provider once and alerts when any of them fails.
func (s *Scheduler) ProbeNow() {
	if s.Prober == nil {
		return
	}
	var fundCode string
	if len(s.FundCodes) > 0 {
		fundCode = s.FundCodes[0]
	}
	results := s.Prober.Probe(s.Ctx, fundCode)
	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
			s.log.Warn().Str("dataset", string(r.Dataset)).Str("adapter", r.Adapter).Str("error", r.Error).Msg("provider probe failed")
		}
	}
	s.log.Info().Int("providers", len(results)).Int("failed", failed).Msg("provider probe finished")
	if failed > 0 {
		s.trySend(notifier.FormatProbeReport(results))
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
