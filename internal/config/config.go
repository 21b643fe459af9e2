package config

import (
	"fmt"
	"math"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/dimenwarper/rootsearch/internal/core/model"
)

type LLMConfig struct {
	Provider       string `toml:"provider"` // openai | gemini | claude | ollama
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type PipelineConfig struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"` // cluster connection threshold T
	EdgeFloor           float64 `toml:"edge_floor"`           // drop edges with strength*confidence below
	StubMatch           float64 `toml:"stub_match"`           // unique-match threshold
	StubRunnerUp        float64 `toml:"stub_runner_up"`       // ambiguity threshold
	StubPromote         float64 `toml:"stub_promote"`         // below this the stub is promoted
	TopK                int     `toml:"top_k"`                // nodes sent to decomposability assessment
}

type ScoringConfig struct {
	Damping       float64 `toml:"damping"`
	Tolerance     float64 `toml:"tolerance"`
	MaxIterations int     `toml:"max_iterations"`

	CascadeWeight    float64 `toml:"cascade_weight"`
	CrossFieldWeight float64 `toml:"cross_field_weight"`
	BottleneckWeight float64 `toml:"bottleneck_weight"`
}

type ConcurrencyConfig struct {
	EmbedWorkers  int `toml:"embed_workers"`
	OracleWorkers int `toml:"oracle_workers"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type Config struct {
	LLM         LLMConfig         `toml:"llm"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Scoring     ScoringConfig     `toml:"scoring"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
	Memgraph    MemgraphConfig    `toml:"memgraph"`
}

func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			SimilarityThreshold: 0.85,
			EdgeFloor:           0.15,
			StubMatch:           0.85,
			StubRunnerUp:        0.75,
			StubPromote:         0.80,
			TopK:                50,
		},
		Scoring: ScoringConfig{
			Damping:          0.85,
			Tolerance:        1e-6,
			MaxIterations:    100,
			CascadeWeight:    0.45,
			CrossFieldWeight: 0.30,
			BottleneckWeight: 0.25,
		},
		Concurrency: ConcurrencyConfig{
			EmbedWorkers:  8,
			OracleWorkers: 4,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// Validate fails fast before any processing. All failures wrap
// model.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	for name, v := range map[string]float64{
		"similarity_threshold": c.Pipeline.SimilarityThreshold,
		"edge_floor":           c.Pipeline.EdgeFloor,
		"stub_match":           c.Pipeline.StubMatch,
		"stub_runner_up":       c.Pipeline.StubRunnerUp,
		"stub_promote":         c.Pipeline.StubPromote,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s=%v must be in [0,1]", model.ErrInvalidConfiguration, name, v)
		}
	}
	if c.Pipeline.TopK < 0 {
		return fmt.Errorf("%w: top_k must be >= 0", model.ErrInvalidConfiguration)
	}
	if c.Scoring.Damping < 0 || c.Scoring.Damping >= 1 {
		return fmt.Errorf("%w: damping=%v must be in [0,1)", model.ErrInvalidConfiguration, c.Scoring.Damping)
	}
	if c.Scoring.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive", model.ErrInvalidConfiguration)
	}
	if c.Scoring.MaxIterations < 1 {
		return fmt.Errorf("%w: max_iterations must be >= 1", model.ErrInvalidConfiguration)
	}

	sum := c.Scoring.CascadeWeight + c.Scoring.CrossFieldWeight + c.Scoring.BottleneckWeight
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("%w: leverage weights sum to %v, want 1.0", model.ErrInvalidConfiguration, sum)
	}
	if c.Scoring.CascadeWeight < 0 || c.Scoring.CrossFieldWeight < 0 || c.Scoring.BottleneckWeight < 0 {
		return fmt.Errorf("%w: leverage weights must be non-negative", model.ErrInvalidConfiguration)
	}

	if c.Concurrency.EmbedWorkers < 1 {
		c.Concurrency.EmbedWorkers = 1
	}
	if c.Concurrency.OracleWorkers < 1 {
		c.Concurrency.OracleWorkers = 1
	}
	return nil
}
