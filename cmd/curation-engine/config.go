// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/curation-engine/internal/secrets"
	"github.com/pdiddy/curation-engine/pkg/types"
)

// setDefaults registers every config key so environment variables and
// Unmarshal see them.
func setDefaults(v *viper.Viper) {
	d := types.DefaultPipelineConfig()

	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("cache.retention_days", d.Cache.RetentionDays)

	v.SetDefault("dedup.timeout", d.Dedup.Timeout)
	v.SetDefault("dedup.user_agent", d.Dedup.UserAgent)
	v.SetDefault("dedup.workers", d.Dedup.Workers)
	v.SetDefault("dedup.sequential", d.Dedup.Sequential)
	v.SetDefault("dedup.max_retries", d.Dedup.MaxRetries)

	v.SetDefault("embedding.timeout", d.Embedding.Timeout)
	v.SetDefault("embedding.user_agent", d.Embedding.UserAgent)
	v.SetDefault("embedding.endpoint", d.Embedding.Endpoint)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.max_retries", d.Embedding.MaxRetries)

	v.SetDefault("alignment.threshold", d.Alignment.Threshold)
	v.SetDefault("alignment.queries_file", "")
	v.SetDefault("alignment.reject_on_negative", d.Alignment.RejectOnNegative)

	v.SetDefault("judge.backend", string(d.Judge.Backend))
	v.SetDefault("judge.endpoint", d.Judge.Endpoint)
	v.SetDefault("judge.model", d.Judge.Model)
	v.SetDefault("judge.api_key", "")
	v.SetDefault("judge.max_retries", d.Judge.MaxRetries)
	v.SetDefault("judge.max_tokens", d.Judge.MaxTokens)
	v.SetDefault("judge.timeout", d.Judge.Timeout)
	v.SetDefault("judge.user_agent", d.Judge.UserAgent)

	v.SetDefault("guardrail.mode", d.Guardrail.Mode)
	v.SetDefault("guardrail.batch_size", d.Guardrail.BatchSize)
	v.SetDefault("guardrail.workers", d.Guardrail.Workers)
	v.SetDefault("guardrail.min_relevance", d.Guardrail.MinRelevance)
	v.SetDefault("guardrail.anchors_file", "")
	v.SetDefault("guardrail.min_pointwise_score", d.Guardrail.MinPointwiseScore)

	v.SetDefault("selection.max_papers", d.Selection.MaxPapers)
	v.SetDefault("selection.max_articles", d.Selection.MaxArticles)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// bindEnv maps CURATION_ENGINE_<SECTION>_<KEY> onto config keys.
// DEDUPLICATION_DB_PATH is accepted for the cache path.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("CURATION_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("cache.path", "CURATION_ENGINE_CACHE_PATH", "DEDUPLICATION_DB_PATH")
}

// bindFlags binds the named flags of cmd to config keys. Flags the command
// does not define are skipped, so shared tables can be reused.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			f = cmd.InheritedFlags().Lookup(flag)
		}
		if f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}

// stageFlags maps flags shared by several subcommands to config keys.
var stageFlags = map[string]string{
	"sequential":    "dedup.sequential",
	"workers":       "dedup.workers",
	"threshold":     "alignment.threshold",
	"queries":       "alignment.queries_file",
	"embed-url":     "embedding.endpoint",
	"embed-model":   "embedding.model",
	"backend":       "judge.backend",
	"judge-url":     "judge.endpoint",
	"model":         "judge.model",
	"mode":          "guardrail.mode",
	"anchors":       "guardrail.anchors_file",
	"min-relevance": "guardrail.min_relevance",
	"max-papers":    "selection.max_papers",
	"max-articles":  "selection.max_articles",
	"retention":     "cache.retention_days",
}

// loadConfig binds cmd's flags and returns the effective configuration with
// API keys filled in from secrets.
func loadConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	bindFlags(cmd, stageFlags)
	return configFrom(viper.GetViper(), loadedSecrets)
}

func configFrom(v *viper.Viper, s secrets.Set) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}

	cfg.Embedding.APIKey = s.Get(cfg.Embedding.APIKey, secrets.EmbeddingAPIKey)
	switch cfg.Judge.Backend {
	case types.JudgeClaude:
		cfg.Judge.APIKey = s.Get(cfg.Judge.APIKey, secrets.AnthropicAPIKey, secrets.JudgeAPIKey)
	default:
		cfg.Judge.APIKey = s.Get(cfg.Judge.APIKey, secrets.JudgeAPIKey)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// addStageFlags defines the named shared flags on cmd.
func addStageFlags(flags *pflag.FlagSet, names ...string) {
	d := types.DefaultPipelineConfig()
	for _, name := range names {
		switch name {
		case "sequential":
			flags.Bool(name, false, "canonicalize URLs one at a time")
		case "workers":
			flags.Int(name, d.Dedup.Workers, "concurrent URL canonicalizations")
		case "threshold":
			flags.Float64(name, d.Alignment.Threshold, "minimum similarity to a positive topic query (0-1)")
		case "queries":
			flags.String(name, "", "YAML file of positive/negative topic queries")
		case "embed-url":
			flags.String(name, d.Embedding.Endpoint, "embedding service base URL")
		case "embed-model":
			flags.String(name, d.Embedding.Model, "embedding model")
		case "backend":
			flags.String(name, string(d.Judge.Backend), "judge backend (openai or claude)")
		case "judge-url":
			flags.String(name, "", "judge API base URL (default: backend's public endpoint)")
		case "model":
			flags.String(name, d.Judge.Model, "judge model")
		case "mode":
			flags.String(name, d.Guardrail.Mode, "scoring mode (pairwise or pointwise)")
		case "anchors":
			flags.String(name, "", "YAML file of anchor documents")
		case "min-relevance":
			flags.Float64(name, d.Guardrail.MinRelevance, "minimum relevance to be eligible (0-1)")
		case "max-papers":
			flags.Int(name, d.Selection.MaxPapers, "papers to select (-1 for no limit)")
		case "max-articles":
			flags.Int(name, d.Selection.MaxArticles, "articles to select (-1 for no limit)")
		case "retention":
			flags.Int(name, d.Cache.RetentionDays, "days a URL stays in the cache")
		}
	}
}
