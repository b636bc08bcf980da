package interfaces

import "context"

// Message represents a single conversation turn
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// GenerationService is the external generation collaborator. The retrieval
// core only assembles grounded context; turning that context into prose is
// delegated here.
type GenerationService interface {
	// Generate produces a completion for the given messages
	Generate(ctx context.Context, messages []Message) (string, error)

	// ProviderName returns the backing provider identifier
	ProviderName() string

	// Check if service is available
	IsAvailable(ctx context.Context) bool
}
