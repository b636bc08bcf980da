// Package retrieval assembles grounded context for natural-language questions
// over the indexed document corpus. It owns embedding the query and selecting
// chunks; it never calls a generation model.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/models"
	"github.com/marketmoves/marketmoves/internal/services/index"
)

// GroundedContext is the assembled retrieval output: the context text to hand
// to a generation model plus the citations backing it
type GroundedContext struct {
	Question  string                    `json:"question"`
	Ticker    string                    `json:"ticker,omitempty"`
	Context   string                    `json:"context"`
	Citations []*models.RetrievalResult `json:"citations"`
	Truncated bool                      `json:"truncated"` // Context budget forced dropping chunks
}

// Orchestrator retrieves the most relevant document chunks for a question.
// It shares the indexer's embedding service so query and document vectors
// live in the same space.
type Orchestrator struct {
	embedder        interfaces.EmbeddingService
	index           *index.VectorIndex
	topK            int
	maxContextChars int
	logger          arbor.ILogger
}

// NewOrchestrator creates a retrieval orchestrator
func NewOrchestrator(embedder interfaces.EmbeddingService, idx *index.VectorIndex, cfg common.RetrievalConfig, logger arbor.ILogger) (*Orchestrator, error) {
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d",
			common.ErrInvalidConfiguration, cfg.TopK)
	}
	if cfg.MaxContextChars <= 0 {
		return nil, fmt.Errorf("%w: max_context_chars must be positive, got %d",
			common.ErrInvalidConfiguration, cfg.MaxContextChars)
	}
	return &Orchestrator{
		embedder:        embedder,
		index:           idx,
		topK:            cfg.TopK,
		maxContextChars: cfg.MaxContextChars,
		logger:          logger,
	}, nil
}

// Retrieve embeds the question, runs the k-NN search (optionally restricted
// to one ticker), and assembles the context block. When the selected chunks
// exceed the context budget, the lowest-ranked are dropped first and the
// result is marked truncated. An empty corpus yields an empty context, not an
// error; the caller decides how to answer without grounding.
func (o *Orchestrator) Retrieve(ctx context.Context, question, ticker string) (*GroundedContext, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question must not be empty")
	}

	queryVec, err := o.embedder.GenerateQueryEmbedding(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	results, err := o.index.Search(queryVec, o.topK, ticker)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	grounded := &GroundedContext{
		Question: question,
		Ticker:   ticker,
	}

	var builder strings.Builder
	for _, r := range results {
		block := fmt.Sprintf("[%d] (%s, %s)\n%s\n\n", r.Rank, r.Ticker, r.DocumentID, r.Text)
		if builder.Len()+len(block) > o.maxContextChars {
			grounded.Truncated = true
			break
		}
		builder.WriteString(block)
		grounded.Citations = append(grounded.Citations, r)
	}
	grounded.Context = strings.TrimRight(builder.String(), "\n")

	o.logger.Debug().
		Str("ticker", ticker).
		Int("retrieved", len(results)).
		Int("cited", len(grounded.Citations)).
		Bool("truncated", grounded.Truncated).
		Msg("Assembled grounded context")

	return grounded, nil
}
