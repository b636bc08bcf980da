package common

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Risk        RiskConfig      `toml:"risk"`
	Anomaly     AnomalyConfig   `toml:"anomaly"`
	Chunking    ChunkingConfig  `toml:"chunking"`
	Retrieval   RetrievalConfig `toml:"retrieval"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// RiskConfig holds the weighting and windowing parameters for the risk engine.
// Weights must sum to exactly 1.0; Validate rejects anything else.
type RiskConfig struct {
	WeightVolatility float64 `toml:"weight_volatility" validate:"gte=0,lte=1"`
	WeightLitigation float64 `toml:"weight_litigation" validate:"gte=0,lte=1"`
	WeightSentiment  float64 `toml:"weight_sentiment" validate:"gte=0,lte=1"`
	WeightFinancial  float64 `toml:"weight_financial_anomaly" validate:"gte=0,lte=1"`
	WeightRegulatory float64 `toml:"weight_regulatory" validate:"gte=0,lte=1"`

	VolatilityWindowDays int `toml:"volatility_window_days" validate:"gt=1"` // Trailing window for volatility (default 90)
	SentimentWindowDays  int `toml:"sentiment_window_days" validate:"gt=0"`  // Trailing window for sentiment (default 30)
	AnomalyWindowDays    int `toml:"anomaly_window_days" validate:"gt=0"`    // Trailing window for flag fraction (default 30)

	// VolatilityMidpoint is the annualized volatility that maps to a 5.0
	// sub-score. 0.25 puts typical large-cap volatility mid-range.
	VolatilityMidpoint float64 `toml:"volatility_midpoint" validate:"gt=0"`

	DimensionTimeout string `toml:"dimension_timeout"` // Per-dimension computation bound, e.g. "10s"
	BatchConcurrency int    `toml:"batch_concurrency" validate:"gt=0"`
}

// AnomalyConfig holds the rolling z-score detector parameters
type AnomalyConfig struct {
	WindowDays      int     `toml:"window_days" validate:"gt=1"`      // Rolling mean/stddev window (default 20)
	MinObservations int     `toml:"min_observations" validate:"gt=1"` // Minimum returns before any flag (default 5)
	Threshold       float64 `toml:"threshold" validate:"gt=0"`        // |z| above this flags the day (default 2.0)
}

// ChunkingConfig holds document chunking parameters.
// ChunkSize and ChunkOverlap are rune counts; overlap must be less than size.
type ChunkingConfig struct {
	ChunkSize    int `toml:"chunk_size" validate:"gt=0"`
	ChunkOverlap int `toml:"chunk_overlap" validate:"gte=0"`
}

// RetrievalConfig holds semantic retrieval parameters
type RetrievalConfig struct {
	TopK            int `toml:"top_k" validate:"gt=0"`             // k-NN result count (default 5)
	MaxContextChars int `toml:"max_context_chars" validate:"gt=0"` // Context assembly budget
	EmbedDimension  int `toml:"embed_dimension" validate:"gt=0"`   // Fixed embedding vector dimension
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // User must provide API key (GEMINI_API_KEY or config)
	Model       string  `toml:"model"`       // Model for generation
	EmbedModel  string  `toml:"embed_model"` // Model for embeddings
	Timeout     string  `toml:"timeout"`     // e.g. "2m"
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between API calls, e.g. "4s"
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"` // User must provide API key (ANTHROPIC_API_KEY or config)
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider identifies an AI provider
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude"
}

// SchedulerConfig controls periodic snapshot recomputation
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Risk: RiskConfig{
			WeightVolatility:     0.30,
			WeightLitigation:     0.25,
			WeightSentiment:      0.20,
			WeightFinancial:      0.15,
			WeightRegulatory:     0.10,
			VolatilityWindowDays: 90,
			SentimentWindowDays:  30,
			AnomalyWindowDays:    30,
			VolatilityMidpoint:   0.25, // 25% annualized volatility scores 5.0
			DimensionTimeout:     "10s",
			BatchConcurrency:     8,
		},
		Anomaly: AnomalyConfig{
			WindowDays:      20,
			MinObservations: 5,
			Threshold:       2.0,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    512,
			ChunkOverlap: 50,
		},
		Retrieval: RetrievalConfig{
			TopK:            5,
			MaxContextChars: 8000,
			EmbedDimension:  768,
		},
		Gemini: GeminiConfig{
			APIKey:      "", // User must provide API key (no fallback)
			Model:       "gemini-2.0-flash",
			EmbedModel:  "gemini-embedding-001",
			Timeout:     "2m",
			RateLimit:   "4s", // 15 RPM for free tier
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   8192,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,       // Disabled by default - user must explicitly opt-in
			Schedule: "0 6 * * *", // Daily at 06:00 (standard cron format)
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files. Later files override
// earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints and the weight-sum invariant.
// A weight set that does not sum to 1.0 is rejected, never corrected.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	sum := c.Risk.WeightVolatility + c.Risk.WeightLitigation + c.Risk.WeightSentiment +
		c.Risk.WeightFinancial + c.Risk.WeightRegulatory
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: risk weights sum to %.4f, must sum to 1.0", ErrInvalidConfiguration, sum)
	}

	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be less than chunk_size (%d)",
			ErrInvalidConfiguration, c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MARKETMOVES_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("MARKETMOVES_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MARKETMOVES_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("MARKETMOVES_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("MARKETMOVES_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("MARKETMOVES_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// API keys
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && config.Gemini.APIKey == "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && config.Claude.APIKey == "" {
		config.Claude.APIKey = key
	}
}

// DimensionTimeoutOrDefault parses the configured per-dimension timeout,
// falling back to 10s on a bad or empty value.
func (c *RiskConfig) DimensionTimeoutOrDefault() string {
	if c.DimensionTimeout == "" {
		return "10s"
	}
	return c.DimensionTimeout
}
