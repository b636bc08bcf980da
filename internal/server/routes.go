package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Risk
	mux.HandleFunc("/api/risk/calculate", s.app.RiskHandler.CalculateHandler) // POST
	mux.HandleFunc("/api/risk/", s.app.RiskHandler.TickerRoutes)              // GET /{ticker}, GET /{ticker}/timeline

	// API routes - Market data ingestion
	mux.HandleFunc("/api/market/prices", s.app.MarketHandler.IngestPricesHandler) // POST
	mux.HandleFunc("/api/market/prices/", s.app.MarketHandler.GetPricesHandler)   // GET /{ticker}
	mux.HandleFunc("/api/market/news", s.app.MarketHandler.IngestNewsHandler)     // POST
	mux.HandleFunc("/api/market/facts", s.app.MarketHandler.IngestFactsHandler)   // POST
	mux.HandleFunc("/api/market/tickers", s.app.MarketHandler.ListTickersHandler) // GET

	// API routes - Documents
	mux.HandleFunc("/api/documents/stats", s.app.DocumentHandler.StatsHandler) // GET
	mux.HandleFunc("/api/documents", s.handleDocumentsRoute)                   // GET (list), POST (ingest)
	mux.HandleFunc("/api/documents/", s.app.DocumentHandler.DocumentRoutes)    // GET/DELETE /{id}, POST /{id}/reindex

	// API routes - Insights (retrieval-grounded generation)
	mux.HandleFunc("/api/insights/query", s.app.InsightsHandler.QueryHandler)          // POST
	mux.HandleFunc("/api/insights/risk-story", s.app.InsightsHandler.RiskStoryHandler) // POST

	// API routes - System
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)

	// Catch-all for unknown API paths
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleDocumentsRoute dispatches /api/documents by method
func (s *Server) handleDocumentsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.DocumentHandler.ListHandler(w, r)
	case http.MethodPost:
		s.app.DocumentHandler.IngestHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
