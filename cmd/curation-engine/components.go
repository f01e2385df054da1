// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/pdiddy/curation-engine/internal/align"
	"github.com/pdiddy/curation-engine/internal/canonical"
	"github.com/pdiddy/curation-engine/internal/dedup"
	"github.com/pdiddy/curation-engine/internal/embed"
	"github.com/pdiddy/curation-engine/internal/guardrail"
	"github.com/pdiddy/curation-engine/internal/judge"
	"github.com/pdiddy/curation-engine/internal/pipeline"
	"github.com/pdiddy/curation-engine/internal/urlcache"
	"github.com/pdiddy/curation-engine/pkg/types"
)

func openCache(cfg types.PipelineConfig) (*urlcache.Store, error) {
	store, err := urlcache.NewStore(cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("opening url cache: %w", err)
	}
	return store, nil
}

func newDeduplicator(cfg types.PipelineConfig, store *urlcache.Store) *dedup.Deduplicator {
	return dedup.New(canonical.New(cfg.Dedup, logger), store, cfg.Dedup, cfg.Cache.RetentionDays, logger)
}

func newAligner(cfg types.PipelineConfig) (*align.Filter, error) {
	queries := align.DefaultQueries()
	if cfg.Alignment.QueriesFile != "" {
		q, err := align.LoadQueries(cfg.Alignment.QueriesFile)
		if err != nil {
			return nil, err
		}
		queries = q
	}
	return align.NewFilter(embed.New(cfg.Embedding), queries, cfg.Alignment, logger)
}

func newScorer(cfg types.PipelineConfig) (pipeline.Scorer, error) {
	backend, err := judge.New(cfg.Judge)
	if err != nil {
		return nil, err
	}

	if cfg.Guardrail.Mode == types.GuardrailPointwise {
		return guardrail.NewPointwiseScorer(backend, cfg.Guardrail, cfg.Judge.MaxRetries, logger), nil
	}

	anchors := guardrail.DefaultAnchors()
	if cfg.Guardrail.AnchorsFile != "" {
		anchors, err = guardrail.LoadAnchors(cfg.Guardrail.AnchorsFile)
		if err != nil {
			return nil, err
		}
	}
	return guardrail.NewScorer(backend, anchors, cfg.Guardrail, cfg.Judge.MaxRetries, logger), nil
}
