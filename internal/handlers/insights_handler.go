package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
	"github.com/marketmoves/marketmoves/internal/services/retrieval"
)

const insightsSystemPrompt = `You are a financial risk analyst assistant. Answer using ONLY the
numbered context excerpts from filed documents. Cite excerpts as [n]. If the
context does not contain the answer, say so rather than speculating.`

// InsightsHandler answers natural-language questions over the document corpus
// and narrates risk snapshots, grounding every answer in retrieved chunks
type InsightsHandler struct {
	orchestrator *retrieval.Orchestrator
	generation   interfaces.GenerationService
	snapshots    interfaces.SnapshotStorage
	logger       arbor.ILogger
}

// NewInsightsHandler creates an insights handler
func NewInsightsHandler(orchestrator *retrieval.Orchestrator, generation interfaces.GenerationService, snapshots interfaces.SnapshotStorage, logger arbor.ILogger) *InsightsHandler {
	return &InsightsHandler{
		orchestrator: orchestrator,
		generation:   generation,
		snapshots:    snapshots,
		logger:       logger,
	}
}

type queryRequest struct {
	Question string `json:"question"`
	Ticker   string `json:"ticker,omitempty"`
}

type queryResponse struct {
	Answer    string                    `json:"answer"`
	Provider  string                    `json:"provider"`
	Citations []*models.RetrievalResult `json:"citations"`
	Truncated bool                      `json:"truncated"`
}

// QueryHandler retrieves grounded context for the question and generates an
// answer with citations
func (h *InsightsHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req queryRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, http.StatusBadRequest, "Question is required")
		return
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))

	grounded, err := h.orchestrator.Retrieve(r.Context(), req.Question, ticker)
	if err != nil {
		h.logger.Error().Err(err).Msg("Retrieval failed")
		WriteError(w, http.StatusInternalServerError, "Retrieval failed")
		return
	}

	userPrompt := req.Question
	if grounded.Context != "" {
		userPrompt = fmt.Sprintf("Context excerpts:\n\n%s\n\nQuestion: %s", grounded.Context, req.Question)
	} else {
		userPrompt = fmt.Sprintf("No document context is available. Question: %s", req.Question)
	}

	answer, err := h.generation.Generate(r.Context(), []interfaces.Message{
		{Role: "system", Content: insightsSystemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Generation failed")
		WriteError(w, http.StatusBadGateway, "Generation failed")
		return
	}

	WriteJSON(w, http.StatusOK, queryResponse{
		Answer:    answer,
		Provider:  h.generation.ProviderName(),
		Citations: grounded.Citations,
		Truncated: grounded.Truncated,
	})
}

type riskStoryRequest struct {
	Ticker string `json:"ticker"`
}

// RiskStoryHandler narrates the latest risk snapshot for an entity, grounded
// in that entity's filed documents
func (h *InsightsHandler) RiskStoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req riskStoryRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
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

	question := fmt.Sprintf("What are the key risk factors and exposures for %s?", ticker)
	grounded, err := h.orchestrator.Retrieve(r.Context(), question, ticker)
	if err != nil {
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Retrieval failed")
		WriteError(w, http.StatusInternalServerError, "Retrieval failed")
		return
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "Composite risk score %.1f/10 (%s)", snapshot.Composite, snapshot.Level)
	if snapshot.Partial {
		summary.WriteString(", computed with partial data")
	}
	summary.WriteString(". Dimension scores:\n")
	for _, dim := range models.AllDimensions {
		if sub, ok := snapshot.SubScores[dim]; ok {
			fmt.Fprintf(&summary, "- %s: %.1f (%s)\n", dim, sub.Value, sub.Detail)
		}
	}

	userPrompt := fmt.Sprintf(
		"Current risk assessment for %s:\n%s\nContext excerpts from filed documents:\n\n%s\n\nWrite a concise risk narrative for %s explaining what is driving the score, citing excerpts as [n].",
		ticker, summary.String(), grounded.Context, ticker)

	story, err := h.generation.Generate(r.Context(), []interfaces.Message{
		{Role: "system", Content: insightsSystemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Generation failed")
		WriteError(w, http.StatusBadGateway, "Generation failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":    ticker,
		"snapshot":  snapshot,
		"story":     story,
		"provider":  h.generation.ProviderName(),
		"citations": grounded.Citations,
	})
}
