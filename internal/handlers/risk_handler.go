package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/services/risk"
)

// RiskHandler serves snapshot and timeline queries plus on-demand computation
type RiskHandler struct {
	aggregator *risk.Aggregator
	snapshots  interfaces.SnapshotStorage
	logger     arbor.ILogger
}

// NewRiskHandler creates a risk handler
func NewRiskHandler(aggregator *risk.Aggregator, snapshots interfaces.SnapshotStorage, logger arbor.ILogger) *RiskHandler {
	return &RiskHandler{
		aggregator: aggregator,
		snapshots:  snapshots,
		logger:     logger,
	}
}

// TickerRoutes dispatches /api/risk/{ticker} and /api/risk/{ticker}/timeline
func (h *RiskHandler) TickerRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/risk/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		h.getSnapshot(w, r, strings.ToUpper(parts[0]))
	case len(parts) == 2 && parts[1] == "timeline":
		h.getTimeline(w, r, strings.ToUpper(parts[0]))
	default:
		WriteError(w, http.StatusNotFound, "Unknown risk endpoint")
	}
}

// getSnapshot returns the latest persisted snapshot for the ticker
func (h *RiskHandler) getSnapshot(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	snapshot, err := h.snapshots.GetLatestSnapshot(ticker, time.Now().UTC())
	if err != nil {
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Snapshot lookup failed")
		WriteError(w, http.StatusInternalServerError, "Failed to load snapshot")
		return
	}
	if snapshot == nil {
		WriteError(w, http.StatusNotFound, "No snapshot computed for "+ticker)
		return
	}

	WriteJSON(w, http.StatusOK, snapshot)
}

// getTimeline returns snapshots in a date range, ascending
func (h *RiskHandler) getTimeline(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -90)

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid 'from' date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid 'to' date, expected YYYY-MM-DD")
			return
		}
		to = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if to.Before(from) {
		WriteError(w, http.StatusBadRequest, "'to' must not be before 'from'")
		return
	}

	timeline, err := h.aggregator.GetTimeline(ticker, from, to)
	if err != nil {
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Timeline lookup failed")
		WriteError(w, http.StatusInternalServerError, "Failed to load timeline")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":    ticker,
		"from":      from,
		"to":        to,
		"count":     len(timeline),
		"snapshots": timeline,
	})
}

type calculateRequest struct {
	Tickers []string `json:"tickers"`
	AsOf    string   `json:"as_of,omitempty"` // RFC3339 or YYYY-MM-DD, default now
}

// CalculateHandler computes fresh snapshots for the requested tickers
func (h *RiskHandler) CalculateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req calculateRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if len(req.Tickers) == 0 {
		WriteError(w, http.StatusBadRequest, "At least one ticker is required")
		return
	}

	asOf := time.Now().UTC()
	if req.AsOf != "" {
		parsed, err := time.Parse(time.RFC3339, req.AsOf)
		if err != nil {
			parsed, err = time.Parse("2006-01-02", req.AsOf)
		}
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid 'as_of', expected RFC3339 or YYYY-MM-DD")
			return
		}
		asOf = parsed.UTC()
	}

	tickers := make([]string, 0, len(req.Tickers))
	for _, t := range req.Tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			tickers = append(tickers, t)
		}
	}

	results := h.aggregator.ComputeBatch(r.Context(), tickers, asOf)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"as_of":   asOf,
		"results": results,
	})
}
