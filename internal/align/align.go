// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package align is a soft topical filter: it keeps documents whose title
// embedding is close enough to at least one positive topic query.
package align

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/curation-engine/pkg/types"
)

//go:embed queries.yaml
var defaultQueriesYAML []byte

// Embedder turns texts into vectors, one per text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Queries holds the topic query strings.
type Queries struct {
	Positive []string `yaml:"positive" json:"positive"`
	Negative []string `yaml:"negative" json:"negative"`
}

// DefaultQueries returns the built-in topic queries.
func DefaultQueries() Queries {
	q, err := parseQueries(defaultQueriesYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in queries: %v", err))
	}
	return q
}

// LoadQueries reads topic queries from a YAML file.
func LoadQueries(path string) (Queries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Queries{}, fmt.Errorf("reading queries %s: %w", path, err)
	}
	q, err := parseQueries(data)
	if err != nil {
		return Queries{}, fmt.Errorf("parsing queries %s: %w", path, err)
	}
	return q, nil
}

func parseQueries(data []byte) (Queries, error) {
	var q Queries
	if err := yaml.Unmarshal(data, &q); err != nil {
		return Queries{}, err
	}
	q.Positive = compact(q.Positive)
	q.Negative = compact(q.Negative)
	if len(q.Positive) == 0 {
		return Queries{}, fmt.Errorf("at least one positive query is required")
	}
	return q, nil
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Alignment is a document's best similarity to each query set.
type Alignment struct {
	Document     types.Document
	BestPositive float64
	BestNegative float64
	Kept         bool
}

// Filter applies the similarity threshold.
type Filter struct {
	embedder         Embedder
	queries          Queries
	threshold        float64
	rejectOnNegative bool
	log              zerolog.Logger
}

// NewFilter returns a Filter. The threshold is clamped to [0, 1].
func NewFilter(embedder Embedder, queries Queries, cfg types.AlignmentConfig, log zerolog.Logger) (*Filter, error) {
	if len(queries.Positive) == 0 {
		return nil, fmt.Errorf("alignment filter needs at least one positive query")
	}
	return &Filter{
		embedder:         embedder,
		queries:          queries,
		threshold:        clamp(cfg.Threshold, 0, 1),
		rejectOnNegative: cfg.RejectOnNegative,
		log:              log,
	}, nil
}

// Threshold returns the effective threshold.
func (f *Filter) Threshold() float64 {
	return f.threshold
}

// Align returns the documents that pass the filter, in input order. When the
// embedding service fails every document passes and a warning is logged.
func (f *Filter) Align(ctx context.Context, docs []types.Document) ([]types.Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	scored, err := f.Score(ctx, docs)
	if err != nil {
		f.log.Warn().Err(err).Int("documents", len(docs)).Msg("alignment unavailable, passing all documents through")
		return docs, nil
	}

	kept := make([]types.Document, 0, len(docs))
	for _, a := range scored {
		f.log.Debug().
			Str("url", a.Document.URL).
			Float64("positive", a.BestPositive).
			Float64("negative", a.BestNegative).
			Bool("kept", a.Kept).
			Msg("alignment")
		if a.Kept {
			kept = append(kept, a.Document)
		}
	}
	return kept, nil
}

// Score embeds the queries and document titles in one request and returns
// each document's best positive and negative similarity with its verdict.
func (f *Filter) Score(ctx context.Context, docs []types.Document) ([]Alignment, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	nPos, nNeg := len(f.queries.Positive), len(f.queries.Negative)
	inputs := make([]string, 0, nPos+nNeg+len(docs))
	inputs = append(inputs, f.queries.Positive...)
	inputs = append(inputs, f.queries.Negative...)
	for _, d := range docs {
		inputs = append(inputs, d.Title)
	}

	vectors, err := f.embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) != len(inputs) {
		return nil, fmt.Errorf("embedding returned %d vectors for %d inputs", len(vectors), len(inputs))
	}

	queryVecs := vectors[:nPos+nNeg]
	titleVecs := vectors[nPos+nNeg:]

	sim, err := CosineSimilarity(titleVecs, queryVecs)
	if err != nil {
		return nil, err
	}
	bestPos := rowMax(sim, 0, nPos)
	bestNeg := rowMax(sim, nPos, nPos+nNeg)

	out := make([]Alignment, len(docs))
	for i, d := range docs {
		kept := bestPos[i] >= f.threshold
		if kept && f.rejectOnNegative && nNeg > 0 && bestNeg[i] > bestPos[i] {
			kept = false
		}
		out[i] = Alignment{
			Document:     d,
			BestPositive: bestPos[i],
			BestNegative: bestNeg[i],
			Kept:         kept,
		}
	}
	return out, nil
}
