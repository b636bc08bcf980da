package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
)

// MarketHandler ingests and serves the raw market observations the risk
// engine scores: prices, polarity-scored news, and graph-fact summaries
type MarketHandler struct {
	prices interfaces.PriceStorage
	news   interfaces.NewsStorage
	facts  interfaces.FactStorage
	logger arbor.ILogger
}

// NewMarketHandler creates a market data handler
func NewMarketHandler(storage interfaces.StorageManager, logger arbor.ILogger) *MarketHandler {
	return &MarketHandler{
		prices: storage.PriceStorage(),
		news:   storage.NewsStorage(),
		facts:  storage.FactStorage(),
		logger: logger,
	}
}

type ingestPricesRequest struct {
	Prices []*models.PriceObservation `json:"prices"`
}

// IngestPricesHandler accepts a batch of price observations.
// Re-sending a (ticker, date) pair overwrites; ingestion is idempotent.
func (h *MarketHandler) IngestPricesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req ingestPricesRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if len(req.Prices) == 0 {
		WriteError(w, http.StatusBadRequest, "At least one price observation is required")
		return
	}
	for _, p := range req.Prices {
		p.Ticker = strings.ToUpper(strings.TrimSpace(p.Ticker))
		if p.Ticker == "" || p.Date.IsZero() {
			WriteError(w, http.StatusBadRequest, "Each observation needs a ticker and date")
			return
		}
	}

	if err := h.prices.SavePrices(req.Prices); err != nil {
		h.logger.Error().Err(err).Msg("Price ingest failed")
		WriteError(w, http.StatusInternalServerError, "Failed to save prices")
		return
	}

	h.logger.Info().Int("count", len(req.Prices)).Msg("Prices ingested")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"saved":  len(req.Prices),
	})
}

// GetPricesHandler serves /api/market/prices/{ticker} and
// /api/market/prices/{ticker}/latest
func (h *MarketHandler) GetPricesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/market/prices/"), "/")
	parts := strings.Split(path, "/")
	ticker := strings.ToUpper(strings.TrimSpace(parts[0]))
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	if len(parts) == 2 && parts[1] == "latest" {
		h.getLatestPrice(w, ticker)
		return
	}
	if len(parts) > 1 {
		WriteError(w, http.StatusNotFound, "Unknown prices endpoint")
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -90)

	obs, err := h.prices.GetPrices(ticker, from, to)
	if err != nil {
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Price lookup failed")
		WriteError(w, http.StatusInternalServerError, "Failed to load prices")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": ticker,
		"count":  len(obs),
		"prices": obs,
	})
}

func (h *MarketHandler) getLatestPrice(w http.ResponseWriter, ticker string) {
	obs, err := h.prices.GetLatestPrice(ticker)
	if err != nil {
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Latest price lookup failed")
		WriteError(w, http.StatusInternalServerError, "Failed to load latest price")
		return
	}
	if obs == nil {
		WriteError(w, http.StatusNotFound, "No price history for "+ticker)
		return
	}

	WriteJSON(w, http.StatusOK, obs)
}

type ingestNewsRequest struct {
	News []*models.NewsObservation `json:"news"`
}

// IngestNewsHandler accepts a batch of polarity-scored news observations
func (h *MarketHandler) IngestNewsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req ingestNewsRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if len(req.News) == 0 {
		WriteError(w, http.StatusBadRequest, "At least one news observation is required")
		return
	}
	for _, n := range req.News {
		n.Ticker = strings.ToUpper(strings.TrimSpace(n.Ticker))
		if n.Ticker == "" || n.PublishedAt.IsZero() {
			WriteError(w, http.StatusBadRequest, "Each observation needs a ticker and published_at")
			return
		}
		if n.Polarity < -1 || n.Polarity > 1 {
			WriteError(w, http.StatusBadRequest, "Polarity must be in [-1,1]")
			return
		}
	}

	if err := h.news.SaveNews(req.News); err != nil {
		h.logger.Error().Err(err).Msg("News ingest failed")
		WriteError(w, http.StatusInternalServerError, "Failed to save news")
		return
	}

	h.logger.Info().Int("count", len(req.News)).Msg("News ingested")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"saved":  len(req.News),
	})
}

// IngestFactsHandler replaces the graph-fact summary for one entity
func (h *MarketHandler) IngestFactsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var facts models.EntityFacts
	if !DecodeBody(w, r, &facts) {
		return
	}
	facts.Ticker = strings.ToUpper(strings.TrimSpace(facts.Ticker))
	if facts.Ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}

	if err := h.facts.SaveFacts(&facts); err != nil {
		h.logger.Error().Err(err).Str("ticker", facts.Ticker).Msg("Fact ingest failed")
		WriteError(w, http.StatusInternalServerError, "Failed to save facts")
		return
	}

	WriteSuccess(w, "Facts saved for "+facts.Ticker)
}

// ListTickersHandler returns every ticker with price history
func (h *MarketHandler) ListTickersHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	tickers, err := h.prices.ListTickers()
	if err != nil {
		h.logger.Error().Err(err).Msg("Ticker list failed")
		WriteError(w, http.StatusInternalServerError, "Failed to list tickers")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(tickers),
		"tickers": tickers,
	})
}
