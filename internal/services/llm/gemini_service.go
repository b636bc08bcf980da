package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/interfaces"
)

// GeminiService implements both the embedding and generation interfaces using
// the Google Gemini API. All document and query embeddings go through the same
// instance so they share one embedding space.
type GeminiService struct {
	config    common.GeminiConfig
	dimension int
	logger    arbor.ILogger
	client    *genai.Client
	timeout   time.Duration
	limiter   *rate.Limiter
}

// NewGeminiService creates the Gemini service. The configured embedding
// dimension must match the vector index; the mismatch is caught here rather
// than on the first search.
func NewGeminiService(cfg common.GeminiConfig, retrievalCfg common.RetrievalConfig, logger arbor.ILogger) (*GeminiService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required (set GEMINI_API_KEY or gemini.api_key in config)",
			common.ErrInvalidConfiguration)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "gemini-embedding-001"
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid gemini timeout '%s': %v",
			common.ErrInvalidConfiguration, cfg.Timeout, err)
	}

	limiter, err := limiterFromInterval(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid gemini rate_limit '%s': %v",
			common.ErrInvalidConfiguration, cfg.RateLimit, err)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:    cfg,
		dimension: retrievalCfg.EmbedDimension,
		logger:    logger,
		client:    client,
		timeout:   timeout,
		limiter:   limiter,
	}

	logger.Info().
		Str("model", cfg.Model).
		Str("embed_model", cfg.EmbedModel).
		Int("embed_dimension", service.dimension).
		Msg("Gemini service initialized")

	return service, nil
}

// GenerateEmbedding embeds document text at the configured dimension
func (s *GeminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return s.embed(ctx, text)
}

// GenerateQueryEmbedding embeds a query. Gemini uses the same call for
// queries and documents; the method exists so callers stay honest about which
// side of the search they are embedding.
func (s *GeminiService) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return s.embed(ctx, query)
}

func (s *GeminiService) embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outputDim := int32(s.dimension)
	result, err := s.client.Models.EmbedContent(timeoutCtx, s.config.EmbedModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{OutputDimensionality: &outputDim})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	var embedding []float32
	if result != nil && len(result.Embeddings) > 0 {
		embedding = result.Embeddings[0].Values
	}
	if embedding == nil {
		return nil, fmt.Errorf("no embedding returned from API")
	}
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d",
			common.ErrDimensionMismatch, s.dimension, len(embedding))
	}

	return embedding, nil
}

// Generate produces a completion for the conversation
func (s *GeminiService) Generate(ctx context.Context, messages []interfaces.Message) (string, error) {
	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return "", err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}
	if systemText != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	start := time.Now()
	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.config.Model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	var response strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from model")
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", response.Len()).
		Dur("duration", time.Since(start)).
		Msg("Gemini generation completed")

	return response.String(), nil
}

func (s *GeminiService) ModelName() string {
	return s.config.EmbedModel
}

func (s *GeminiService) Dimension() int {
	return s.dimension
}

func (s *GeminiService) ProviderName() string {
	return string(common.LLMProviderGemini)
}

// IsAvailable probes the embedding model with a short static request
func (s *GeminiService) IsAvailable(ctx context.Context) bool {
	if s.client == nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	embedding, err := s.embed(probeCtx, "health check probe")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Gemini availability probe failed")
		return false
	}
	return len(embedding) > 0
}

// convertMessagesToGemini maps conversation messages to Gemini content,
// pulling the first system message out for SystemInstruction
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		role := genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	return contents, systemText, nil
}
