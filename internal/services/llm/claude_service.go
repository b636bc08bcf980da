package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/interfaces"
)

// ClaudeService implements the generation interface using the Anthropic API.
// Claude does not serve embeddings; embedding traffic always goes to Gemini.
type ClaudeService struct {
	config    common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	timeout   time.Duration
	maxTokens int
	limiter   *rate.Limiter
}

// NewClaudeService creates the Claude generation service
func NewClaudeService(cfg common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: Anthropic API key is required (set ANTHROPIC_API_KEY or claude.api_key in config)",
			common.ErrInvalidConfiguration)
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid claude timeout '%s': %v",
			common.ErrInvalidConfiguration, cfg.Timeout, err)
	}

	limiter, err := limiterFromInterval(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid claude rate_limit '%s': %v",
			common.ErrInvalidConfiguration, cfg.RateLimit, err)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	service := &ClaudeService{
		config:    cfg,
		logger:    logger,
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		timeout:   timeout,
		maxTokens: maxTokens,
		limiter:   limiter,
	}

	logger.Info().
		Str("model", cfg.Model).
		Int("max_tokens", maxTokens).
		Msg("Claude service initialized")

	return service, nil
}

// Generate produces a completion for the conversation
func (s *ClaudeService) Generate(ctx context.Context, messages []interfaces.Message) (string, error) {
	claudeMessages, systemText, err := convertMessagesToClaude(messages)
	if err != nil {
		return "", err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages:  claudeMessages,
	}
	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}

	start := time.Now()
	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude API")
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", response.Len()).
		Dur("duration", time.Since(start)).
		Msg("Claude generation completed")

	return response.String(), nil
}

func (s *ClaudeService) ProviderName() string {
	return string(common.LLMProviderClaude)
}

// IsAvailable probes the API with a minimal message
func (s *ClaudeService) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.Generate(probeCtx, []interfaces.Message{{Role: "user", Content: "ping"}})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Claude availability probe failed")
		return false
	}
	return strings.TrimSpace(response) != ""
}

// convertMessagesToClaude maps conversation messages to Claude message
// params, pulling the first system message out for the System parameter
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
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

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content)))
		default:
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content)))
		}
	}

	return claudeMessages, systemText, nil
}
