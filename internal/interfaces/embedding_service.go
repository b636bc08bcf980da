package interfaces

import "context"

// EmbeddingService generates vector embeddings. Documents and queries MUST be
// embedded by the same service instance: mismatched embedding spaces silently
// degrade relevance, so the orchestrator and indexer share one reference.
type EmbeddingService interface {
	// Generate embedding for raw text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// Generate query embedding (may have different prompt than document embedding)
	GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error)

	// Get model information
	ModelName() string
	Dimension() int

	// Check if service is available
	IsAvailable(ctx context.Context) bool
}
