package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"WealthPulse/internal/advisor"
	"WealthPulse/internal/analytics"
	"WealthPulse/internal/cache"
	"WealthPulse/internal/model"
	"WealthPulse/internal/notifier"
	"WealthPulse/internal/strategy"
)

type analyzeRequest struct {
	Investments []model.Investment `json:"investments"`
	// Quotes is a caller-supplied price snapshot; it wins over cached quotes.
	Quotes []model.Quote `json:"quotes"`
	// Revalue marks holdings with a symbol to market before analysis.
	Revalue bool `json:"revalue"`
	// Notify forwards high-priority recommendations to the alert chat.
	Notify bool `json:"notify"`
}

type analyzeResponse struct {
	Summary         model.PortfolioSummary `json:"portfolioSummary"`
	Recommendations []model.Recommendation `json:"recommendations"`
	StaleDatasets   []model.Dataset        `json:"staleDatasets,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Investments = model.NormalizeInvestments(req.Investments)
	var (
		sets  []*model.QuoteSet
		stale []model.Dataset
	)
	if req.Revalue {
		sets, stale = s.marketSets(r, req.Investments)
	}
	if len(req.Quotes) > 0 {
		supplied := make([]model.Quote, len(req.Quotes))
		for i, q := range req.Quotes {
			q.Symbol = model.NormalizeSymbol(q.Symbol)
			supplied[i] = q
		}
		sets = append(sets, &model.QuoteSet{Quotes: supplied})
	}
	invs := req.Investments
	if len(sets) > 0 {
		invs = analytics.Revalue(invs, model.QuoteIndex(sets...))
	}

	now := s.now()
	recs := s.cfg.Engine.Evaluate(invs, now)
	if req.Notify {
		if msg := notifier.FormatRecommendations(strategy.ByPriority(recs, model.PriorityHigh)); msg != "" {
			if err := s.cfg.Notifier.SendWithRetry(r.Context(), msg, 1); err != nil {
				s.log.Warn().Err(err).Msg("recommendation alert not sent")
			}
		}
	}
	s.writeJSON(w, http.StatusOK, analyzeResponse{
		Summary:         analytics.Summarize(invs, now),
		Recommendations: recs,
		StaleDatasets:   stale,
	})
}

// marketSets loads quotes for the active holdings with symbols. Market
// failures are logged and leave the affected holdings at their stored value.
func (s *Server) marketSets(r *http.Request, invs []model.Investment) ([]*model.QuoteSet, []model.Dataset) {
	bySet := make(map[model.Dataset][]string)
	for _, inv := range analytics.Active(invs) {
		if inv.Symbol == "" {
			continue
		}
		if ds, ok := datasetFor(inv); ok {
			bySet[ds] = append(bySet[ds], inv.Symbol)
		}
	}

	var (
		sets  []*model.QuoteSet
		stale []model.Dataset
	)
	for _, ds := range model.Datasets {
		symbols, ok := bySet[ds]
		if !ok {
			continue
		}
		res, err := s.cfg.Quotes.Get(r.Context(), cache.NewKey(ds, symbols))
		if err != nil {
			s.log.Warn().Err(err).Str("dataset", string(ds)).Msg("revalue skipped")
			continue
		}
		if res.Stale {
			stale = append(stale, ds)
		}
		sets = append(sets, res.Set)
	}
	return sets, stale
}

// datasetFor picks the dataset a holding is quoted in. Commodity quantities
// are in the quote's unit (10-gram lots for gold, grams for silver).
func datasetFor(inv model.Investment) (model.Dataset, bool) {
	switch inv.Type {
	case model.TypeEquities, model.TypeETF:
		return model.DatasetEquities, true
	case model.TypeMutualFunds:
		return model.DatasetFunds, true
	case model.TypeCommodities:
		sym := model.NormalizeSymbol(inv.Symbol)
		if strings.HasPrefix(sym, "GOLD") || sym == "SILVER" {
			return model.DatasetGold, true
		}
	}
	return "", false
}

type performanceRequest struct {
	Investment model.Investment `json:"investment"`
	NewValue   decimal.Decimal  `json:"newValue"`
	NewPrice   decimal.Decimal  `json:"newPrice"`
}

type performanceResponse struct {
	Investment model.Investment          `json:"investment"`
	Snapshot   model.PerformanceSnapshot `json:"snapshot"`
}

func (s *Server) handleUpdatePerformance(w http.ResponseWriter, r *http.Request) {
	var req performanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.NewValue.IsNegative() {
		s.writeError(w, http.StatusBadRequest, "newValue must not be negative")
		return
	}
	inv := req.Investment
	inv.Normalize()
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}

	snap := analytics.UpdatePerformance(&inv, req.NewValue, req.NewPrice, s.now())
	if err := s.cfg.Recorder.RecordPerformance(r.Context(), inv.ID, snap); err != nil {
		s.log.Error().Err(err).Str("investment", inv.ID.String()).Msg("record performance")
		s.writeError(w, http.StatusInternalServerError, "failed to record performance")
		return
	}
	s.writeJSON(w, http.StatusOK, performanceResponse{Investment: inv, Snapshot: snap})
}

func (s *Server) handlePerformanceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid investment id")
		return
	}
	history, err := s.cfg.Recorder.PerformanceHistory(r.Context(), id)
	if err != nil {
		s.log.Error().Err(err).Msg("performance history")
		s.writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if history == nil {
		history = []model.PerformanceSnapshot{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"investmentId": id, "history": history})
}

type adviceRequest struct {
	Message     string             `json:"message"`
	Investments []model.Investment `json:"investments"`
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Advisor == nil {
		s.writeError(w, http.StatusNotImplemented, "advisor not configured")
		return
	}
	var req adviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	resp, err := s.cfg.Advisor.Ask(r.Context(), req.Message, model.NormalizeInvestments(req.Investments))
	switch {
	case errors.Is(err, advisor.ErrEmptyMessage):
		s.writeError(w, http.StatusBadRequest, "message is required")
	case errors.Is(err, advisor.ErrRateLimited):
		s.writeError(w, http.StatusTooManyRequests, "too many AI requests, please try again later")
	case err != nil:
		s.writeError(w, http.StatusBadGateway, "failed to generate AI advice")
	default:
		s.writeJSON(w, http.StatusOK, resp)
	}
}
