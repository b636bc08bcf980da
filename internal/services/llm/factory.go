// Package llm provides the external AI collaborators: Gemini for embeddings
// and generation, Claude for generation. Provider selection is configuration
// driven; the rest of the system only sees the embedding and generation
// interfaces.
package llm

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/interfaces"
)

// Services bundles the constructed AI collaborators
type Services struct {
	Embedding  interfaces.EmbeddingService
	Generation interfaces.GenerationService
}

// NewServices builds the embedding and generation services from
// configuration. Embeddings always come from Gemini; generation follows
// llm.default_provider.
func NewServices(cfg *common.Config, logger arbor.ILogger) (*Services, error) {
	gemini, err := NewGeminiService(cfg.Gemini, cfg.Retrieval, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini service: %w", err)
	}

	services := &Services{Embedding: gemini}

	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderGemini:
		services.Generation = gemini
	case common.LLMProviderClaude:
		claude, err := NewClaudeService(cfg.Claude, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Claude service: %w", err)
		}
		services.Generation = claude
	default:
		return nil, fmt.Errorf("%w: unknown llm provider '%s'",
			common.ErrInvalidConfiguration, cfg.LLM.DefaultProvider)
	}

	logger.Info().
		Str("generation_provider", services.Generation.ProviderName()).
		Str("embed_model", services.Embedding.ModelName()).
		Msg("AI services initialized")

	return services, nil
}

// limiterFromInterval builds a rate limiter from a minimum-interval string
// like "4s". Empty means unlimited.
func limiterFromInterval(interval string) (*rate.Limiter, error) {
	if interval == "" {
		return rate.NewLimiter(rate.Inf, 1), nil
	}
	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, err
	}
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1), nil
	}
	return rate.NewLimiter(rate.Every(d), 1), nil
}
