// Package app wires configuration, storage, services, and handlers into a
// runnable application.
package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/marketmoves/marketmoves/internal/common"
	"github.com/marketmoves/marketmoves/internal/handlers"
	"github.com/marketmoves/marketmoves/internal/interfaces"
	"github.com/marketmoves/marketmoves/internal/services/index"
	"github.com/marketmoves/marketmoves/internal/services/llm"
	"github.com/marketmoves/marketmoves/internal/services/retrieval"
	"github.com/marketmoves/marketmoves/internal/services/risk"
	"github.com/marketmoves/marketmoves/internal/services/scheduler"
	badgerstorage "github.com/marketmoves/marketmoves/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// AI collaborators
	EmbeddingService  interfaces.EmbeddingService
	GenerationService interfaces.GenerationService

	// Risk engine
	Aggregator       *risk.Aggregator
	AnomalyDetector  *risk.AnomalyDetector
	SchedulerService *scheduler.Service

	// Document corpus
	Chunker      *index.Chunker
	VectorIndex  *index.VectorIndex
	Indexer      *index.Indexer
	Orchestrator *retrieval.Orchestrator

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	RiskHandler     *handlers.RiskHandler
	MarketHandler   *handlers.MarketHandler
	InsightsHandler *handlers.InsightsHandler
	DocumentHandler *handlers.DocumentHandler
}

// New builds the application from configuration. Construction order matters:
// storage first, then the AI services, then the engines that depend on both,
// then the handlers.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badgerstorage.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = storageManager

	aiServices, err := llm.NewServices(cfg, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize AI services: %w", err)
	}
	a.EmbeddingService = aiServices.Embedding
	a.GenerationService = aiServices.Generation

	if err := a.buildRiskEngine(); err != nil {
		storageManager.Close()
		return nil, err
	}
	if err := a.buildDocumentCorpus(); err != nil {
		storageManager.Close()
		return nil, err
	}

	a.APIHandler = handlers.NewAPIHandler()
	a.RiskHandler = handlers.NewRiskHandler(a.Aggregator, storageManager.SnapshotStorage(), logger)
	a.MarketHandler = handlers.NewMarketHandler(storageManager, logger)
	a.InsightsHandler = handlers.NewInsightsHandler(a.Orchestrator, a.GenerationService, storageManager.SnapshotStorage(), logger)
	a.DocumentHandler = handlers.NewDocumentHandler(a.Indexer, storageManager.DocumentStorage(), a.VectorIndex, logger)

	logger.Info().Msg("Application initialized")
	return a, nil
}

func (a *App) buildRiskEngine() error {
	cfg := a.Config
	prices := a.StorageManager.PriceStorage()
	facts := a.StorageManager.FactStorage()

	a.AnomalyDetector = risk.NewAnomalyDetector(cfg.Anomaly)

	rules := []risk.Rule{
		risk.NewVolatilityRule(prices, cfg.Risk),
		risk.NewSentimentRule(a.StorageManager.NewsStorage(), cfg.Risk),
		risk.NewLitigationRule(facts),
		risk.NewRegulatoryRule(facts),
		risk.NewFinancialAnomalyRule(prices, a.AnomalyDetector, cfg.Risk, cfg.Anomaly),
	}

	aggregator, err := risk.NewAggregator(rules, cfg.Risk, a.StorageManager.SnapshotStorage(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to build risk aggregator: %w", err)
	}
	a.Aggregator = aggregator

	a.SchedulerService = scheduler.NewService(aggregator, prices, cfg.Scheduler, a.Logger)
	return nil
}

func (a *App) buildDocumentCorpus() error {
	cfg := a.Config

	chunker, err := index.NewChunker(cfg.Chunking)
	if err != nil {
		return fmt.Errorf("failed to build chunker: %w", err)
	}
	a.Chunker = chunker

	vectorIndex, err := index.NewVectorIndex(cfg.Retrieval.EmbedDimension)
	if err != nil {
		return fmt.Errorf("failed to build vector index: %w", err)
	}
	a.VectorIndex = vectorIndex

	a.Indexer = index.NewIndexer(chunker, a.EmbeddingService, a.StorageManager.DocumentStorage(), vectorIndex, a.Logger)
	if err := a.Indexer.LoadFromStorage(); err != nil {
		return fmt.Errorf("failed to load vector index: %w", err)
	}

	orchestrator, err := retrieval.NewOrchestrator(a.EmbeddingService, vectorIndex, cfg.Retrieval, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to build retrieval orchestrator: %w", err)
	}
	a.Orchestrator = orchestrator
	return nil
}

// Start begins background work: the scheduled snapshot recomputation
func (a *App) Start(ctx context.Context) error {
	if a.Config.Scheduler.Enabled {
		if err := a.SchedulerService.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}
	return nil
}

// Shutdown stops background work and closes storage
func (a *App) Shutdown() {
	if a.Config.Scheduler.Enabled {
		a.SchedulerService.Stop()
	}
	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Storage close failed")
	}
	a.Logger.Info().Msg("Application shut down")
}
