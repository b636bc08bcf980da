package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
	"github.com/marketmoves/marketmoves/internal/services/index"
)

// DocumentHandler manages the filed-document corpus behind retrieval
type DocumentHandler struct {
	indexer   *index.Indexer
	documents interfaces.DocumentStorage
	vectors   *index.VectorIndex
	logger    arbor.ILogger
}

// NewDocumentHandler creates a document handler
func NewDocumentHandler(indexer *index.Indexer, documents interfaces.DocumentStorage, vectors *index.VectorIndex, logger arbor.ILogger) *DocumentHandler {
	return &DocumentHandler{
		indexer:   indexer,
		documents: documents,
		vectors:   vectors,
		logger:    logger,
	}
}

type ingestDocumentRequest struct {
	Ticker     string `json:"ticker"`
	Title      string `json:"title"`
	FilingType string `json:"filing_type,omitempty"`
	FiledAt    string `json:"filed_at,omitempty"` // YYYY-MM-DD
	Content    string `json:"content"`
}

// IngestHandler accepts pre-extracted document text, then chunks, embeds, and
// indexes it. Returns 201 with the assigned document ID.
func (h *DocumentHandler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req ingestDocumentRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" {
		WriteError(w, http.StatusBadRequest, "Ticker is required")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		WriteError(w, http.StatusBadRequest, "Content is required")
		return
	}

	doc := &models.Document{
		Ticker:     req.Ticker,
		Title:      req.Title,
		FilingType: req.FilingType,
		Content:    req.Content,
	}
	if req.FiledAt != "" {
		filedAt, err := time.Parse("2006-01-02", req.FiledAt)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid 'filed_at', expected YYYY-MM-DD")
			return
		}
		doc.FiledAt = filedAt
	}

	saved, err := h.indexer.IngestDocument(r.Context(), doc)
	if err != nil {
		h.logger.Error().Err(err).Str("ticker", req.Ticker).Msg("Document ingest failed")
		WriteError(w, http.StatusInternalServerError, "Failed to ingest document")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"status":      "success",
		"document_id": saved.ID,
	})
}

// ListHandler returns documents, optionally filtered by ?ticker=
func (h *DocumentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	docs, err := h.documents.ListDocuments(ticker)
	if err != nil {
		h.logger.Error().Err(err).Msg("Document list failed")
		WriteError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	// Strip raw content from listings; it can be megabytes per filing
	summaries := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		summaries = append(summaries, map[string]interface{}{
			"id":            d.ID,
			"ticker":        d.Ticker,
			"title":         d.Title,
			"filing_type":   d.FilingType,
			"filed_at":      d.FiledAt,
			"chunk_version": d.ChunkVersion,
			"created_at":    d.CreatedAt,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(summaries),
		"documents": summaries,
	})
}

// DocumentRoutes dispatches /api/documents/{id} and /api/documents/{id}/reindex
func (h *DocumentHandler) DocumentRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		switch r.Method {
		case http.MethodGet:
			h.getDocument(w, parts[0])
		case http.MethodDelete:
			h.deleteDocument(w, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "reindex":
		h.reindexDocument(w, r, parts[0])
	default:
		WriteError(w, http.StatusNotFound, "Unknown document endpoint")
	}
}

func (h *DocumentHandler) getDocument(w http.ResponseWriter, id string) {
	doc, err := h.documents.GetDocument(id)
	if err != nil {
		h.logger.Error().Err(err).Str("document_id", id).Msg("Document lookup failed")
		WriteError(w, http.StatusInternalServerError, "Failed to load document")
		return
	}
	if doc == nil {
		WriteError(w, http.StatusNotFound, "Document not found: "+id)
		return
	}
	WriteJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) deleteDocument(w http.ResponseWriter, id string) {
	doc, err := h.documents.GetDocument(id)
	if err != nil {
		h.logger.Error().Err(err).Str("document_id", id).Msg("Document lookup failed")
		WriteError(w, http.StatusInternalServerError, "Failed to load document")
		return
	}
	if doc == nil {
		WriteError(w, http.StatusNotFound, "Document not found: "+id)
		return
	}

	if err := h.indexer.RemoveDocument(id); err != nil {
		h.logger.Error().Err(err).Str("document_id", id).Msg("Document delete failed")
		WriteError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}

	WriteSuccess(w, "Document deleted: "+id)
}

func (h *DocumentHandler) reindexDocument(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.indexer.ReindexDocument(r.Context(), id); err != nil {
		h.logger.Error().Err(err).Str("document_id", id).Msg("Reindex failed")
		WriteError(w, http.StatusInternalServerError, "Failed to reindex document")
		return
	}

	WriteSuccess(w, "Document reindexed: "+id)
}

// StatsHandler returns corpus statistics
func (h *DocumentHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	count, err := h.documents.CountDocuments()
	if err != nil {
		h.logger.Error().Err(err).Msg("Document count failed")
		WriteError(w, http.StatusInternalServerError, "Failed to count documents")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents":      count,
		"indexed_chunks": h.vectors.Size(),
		"dimension":      h.vectors.Dimension(),
	})
}
