package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"WealthPulse/internal/cache"
	"WealthPulse/internal/collector"
	"WealthPulse/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "wealthpulse",
		"timestamp": s.now().UTC(),
	})
}

// marketResponse carries the quote set plus staleness, so the UI can show
// "last known values as of fetchedAt".
type marketResponse struct {
	Dataset   model.Dataset `json:"dataset"`
	Quotes    []model.Quote `json:"quotes"`
	AsOf      time.Time     `json:"asOf"`
	Source    string        `json:"source"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Stale     bool          `json:"stale"`
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	ds, err := model.ParseDataset(chi.URLParam(r, "dataset"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	symbols := splitSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		symbols = collector.DefaultSymbols(ds, s.cfg.FundCodes)
	}
	if len(symbols) == 0 {
		s.writeError(w, http.StatusBadRequest, "symbols are required")
		return
	}

	res, err := s.cfg.Quotes.Get(r.Context(), cache.NewKey(ds, symbols))
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, marketResponse{
		Dataset:   ds,
		Quotes:    res.Set.Quotes,
		AsOf:      res.Set.AsOf,
		Source:    res.Set.Source,
		FetchedAt: res.FetchedAt,
		Stale:     res.Stale,
	})
}

func (s *Server) handleQuoteHistory(w http.ResponseWriter, r *http.Request) {
	ds, err := model.ParseDataset(chi.URLParam(r, "dataset"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 || limit > 1000 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
	}
	quotes, err := s.cfg.Recorder.QuoteHistory(r.Context(), ds, chi.URLParam(r, "symbol"), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("quote history")
		s.writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if quotes == nil {
		quotes = []model.Quote{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Prober == nil {
		s.writeError(w, http.StatusNotImplemented, "provider probe not configured")
		return
	}
	var fundCode string
	if len(s.cfg.FundCodes) > 0 {
		fundCode = s.cfg.FundCodes[0]
	}
	results := s.cfg.Prober.Probe(r.Context(), fundCode)
	healthy := 0
	for _, p := range results {
		if p.OK {
			healthy++
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"providers": results,
		"healthy":   healthy,
		"total":     len(results),
	})
}

// writeLoadError maps collector and cache failures onto HTTP statuses.
func (s *Server) writeLoadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, collector.ErrNoDataAvailable):
		s.writeError(w, http.StatusServiceUnavailable, collector.ErrNoDataAvailable.Error())
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to write
	default:
		s.log.Error().Err(err).Msg("market load failed")
		s.writeError(w, http.StatusBadGateway, "market data unavailable")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a JSON body of at most 1 MiB.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}

func splitSymbols(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return model.NormalizeSymbols(strings.Split(s, ","))
}
