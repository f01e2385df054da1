package types

import (
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "curation-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// CacheConfig holds settings for the URL dedup cache.
type CacheConfig struct {
	// Path is the SQLite database file. Its parent directory is created on open.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// RetentionDays is how long a URL stays in the cache (default 7).
	RetentionDays int `json:"retention_days" yaml:"retention_days" mapstructure:"retention_days"`
}

// DedupConfig holds settings for the deduplication stage.
type DedupConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Workers caps the canonicalization pool (default 16).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// Sequential disables the pool and canonicalizes one URL at a time.
	Sequential bool `json:"sequential" yaml:"sequential" mapstructure:"sequential"`

	// MaxRetries is the number of attempts per canonicalization fetch (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// EmbeddingConfig holds settings for the embedding service.
type EmbeddingConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoint is the base URL of an OpenAI-compatible embeddings API.
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// Model is the embedding model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Dimensions requests a fixed vector size (default 1024, 0 = model default).
	Dimensions int `json:"dimensions" yaml:"dimensions" mapstructure:"dimensions"`

	// APIKey authenticates against the embedding service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retries on rate limiting (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// AlignmentConfig holds settings for the alignment filter.
type AlignmentConfig struct {
	// Threshold is the minimum best-positive cosine similarity. It is
	// clamped to [0, 1].
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`

	// QueriesFile overrides the built-in positive/negative topic queries.
	QueriesFile string `json:"queries_file,omitempty" yaml:"queries_file,omitempty" mapstructure:"queries_file"`

	// RejectOnNegative also drops documents closer to a negative query
	// than to any positive one.
	RejectOnNegative bool `json:"reject_on_negative" yaml:"reject_on_negative" mapstructure:"reject_on_negative"`
}

// JudgeBackend selects the LLM used by the guardrail scorer.
type JudgeBackend string

const (
	JudgeOpenAI JudgeBackend = "openai"
	JudgeClaude JudgeBackend = "claude"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gpt-oss-20b").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of attempts per judge batch (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// JudgeConfig holds settings for the judging LLM.
type JudgeConfig struct {
	AIConfig   `yaml:",inline" mapstructure:",squash"`
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backend is openai (any chat-completions endpoint) or claude.
	Backend JudgeBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Endpoint is the base URL of the judge API. Empty uses the backend default.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`

	// MaxTokens bounds each judge response (default 1024).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// Guardrail scoring modes.
const (
	GuardrailPairwise  = "pairwise"
	GuardrailPointwise = "pointwise"
)

// GuardrailConfig holds settings for the relevance/priority scorer.
type GuardrailConfig struct {
	// Mode is "pairwise" (anchor tournament, default) or "pointwise"
	// (one 0-10 rating per document).
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`

	// BatchSize is the number of anchors per judge call (default 5).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// Workers caps the per-document scoring pool (default 8).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// MinRelevance drops documents whose relevance falls below it (default 0.8).
	MinRelevance float64 `json:"min_relevance" yaml:"min_relevance" mapstructure:"min_relevance"`

	// AnchorsFile overrides the built-in anchor sets.
	AnchorsFile string `json:"anchors_file,omitempty" yaml:"anchors_file,omitempty" mapstructure:"anchors_file"`

	// MinPointwiseScore is the lowest 0-10 rating kept in pointwise mode (default 4).
	MinPointwiseScore int `json:"min_pointwise_score" yaml:"min_pointwise_score" mapstructure:"min_pointwise_score"`
}

// SelectionConfig caps the output per content type. -1 means unbounded.
type SelectionConfig struct {
	MaxPapers   int `json:"max_papers" yaml:"max_papers" mapstructure:"max_papers"`
	MaxArticles int `json:"max_articles" yaml:"max_articles" mapstructure:"max_articles"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is a zerolog level name (debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is console or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Cache     CacheConfig     `json:"cache" yaml:"cache" mapstructure:"cache"`
	Dedup     DedupConfig     `json:"dedup" yaml:"dedup" mapstructure:"dedup"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Alignment AlignmentConfig `json:"alignment" yaml:"alignment" mapstructure:"alignment"`
	Judge     JudgeConfig     `json:"judge" yaml:"judge" mapstructure:"judge"`
	Guardrail GuardrailConfig `json:"guardrail" yaml:"guardrail" mapstructure:"guardrail"`
	Selection SelectionConfig `json:"selection" yaml:"selection" mapstructure:"selection"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultPipelineConfig returns the configuration used when nothing is set.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Cache: CacheConfig{
			Path:          "data/url_cache.db",
			RetentionDays: 7,
		},
		Dedup: DedupConfig{
			HTTPConfig: HTTPConfig{Timeout: 10 * time.Second, UserAgent: "curation-engine/0.1"},
			Workers:    16,
			MaxRetries: 2,
		},
		Embedding: EmbeddingConfig{
			HTTPConfig: HTTPConfig{Timeout: 60 * time.Second, UserAgent: "curation-engine/0.1"},
			Endpoint:   "http://localhost:8080",
			Model:      "text-embedding-3-small",
			Dimensions: 1024,
			MaxRetries: 3,
		},
		Alignment: AlignmentConfig{Threshold: 0.0},
		Judge: JudgeConfig{
			AIConfig:   AIConfig{Model: "gpt-oss-20b", MaxRetries: 3},
			HTTPConfig: HTTPConfig{Timeout: 120 * time.Second, UserAgent: "curation-engine/0.1"},
			Backend:    JudgeOpenAI,
			MaxTokens:  1024,
		},
		Guardrail: GuardrailConfig{
			Mode:              GuardrailPairwise,
			BatchSize:         5,
			Workers:           8,
			MinRelevance:      0.8,
			MinPointwiseScore: 4,
		},
		Selection: SelectionConfig{MaxPapers: 5, MaxArticles: 10},
		Log:       LogConfig{Level: "info", Format: "console"},
	}
}

// Validate checks values that would otherwise fail deep inside a stage.
func (c PipelineConfig) Validate() error {
	if c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required")
	}
	if c.Cache.RetentionDays < 0 {
		return fmt.Errorf("cache.retention_days must be >= 0, got %d", c.Cache.RetentionDays)
	}
	if c.Selection.MaxPapers < -1 || c.Selection.MaxArticles < -1 {
		return fmt.Errorf("selection caps must be >= -1")
	}
	switch c.Judge.Backend {
	case JudgeOpenAI, JudgeClaude:
	default:
		return fmt.Errorf("unsupported judge backend %q: use openai or claude", c.Judge.Backend)
	}
	switch c.Guardrail.Mode {
	case "", GuardrailPairwise, GuardrailPointwise:
	default:
		return fmt.Errorf("guardrail.mode must be %q or %q, got %q", GuardrailPairwise, GuardrailPointwise, c.Guardrail.Mode)
	}
	if c.Guardrail.MinRelevance < 0 || c.Guardrail.MinRelevance > 1 {
		return fmt.Errorf("guardrail.min_relevance must be in [0,1], got %g", c.Guardrail.MinRelevance)
	}
	if c.Guardrail.MinPointwiseScore < 0 || c.Guardrail.MinPointwiseScore > 10 {
		return fmt.Errorf("guardrail.min_pointwise_score must be in [0,10], got %d", c.Guardrail.MinPointwiseScore)
	}
	return nil
}
