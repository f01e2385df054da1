// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the curation stages in order: deduplication,
// alignment, guardrail scoring and selection.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/pdiddy/curation-engine/internal/dedup"
	"github.com/pdiddy/curation-engine/internal/guardrail"
	"github.com/pdiddy/curation-engine/pkg/types"
)

// Deduplicator drops documents already seen on an earlier day.
type Deduplicator interface {
	RemoveDuplicates(ctx context.Context, docs []types.Document) ([]types.Document, dedup.Summary, error)
}

// Aligner drops documents off the target topics.
type Aligner interface {
	Align(ctx context.Context, docs []types.Document) ([]types.Document, error)
}

// Scorer scores candidates and returns the eligible ones.
type Scorer interface {
	ScoreAll(ctx context.Context, candidates []types.Candidate) ([]types.ScoredDocument, guardrail.Summary)
}

// Summary holds per-stage counts from one run.
type Summary struct {
	Input    int
	Dedup    dedup.Summary
	Aligned  int
	Scoring  guardrail.Summary
	Selected int
}

// Pipeline wires the stages together. A nil Aligner skips alignment.
type Pipeline struct {
	dedup     Deduplicator
	align     Aligner
	scorer    Scorer
	selection types.SelectionConfig
	log       zerolog.Logger
}

// New returns a Pipeline.
func New(d Deduplicator, a Aligner, s Scorer, selection types.SelectionConfig, log zerolog.Logger) *Pipeline {
	return &Pipeline{dedup: d, align: a, scorer: s, selection: selection, log: log}
}

// Run curates candidates and returns the selected documents, papers first,
// each carrying its combined score. Only a cache failure aborts the run;
// alignment and scoring degrade per document.
func (p *Pipeline) Run(ctx context.Context, candidates []types.Candidate) ([]types.Document, Summary, error) {
	summary := Summary{Input: len(candidates)}
	if len(candidates) == 0 {
		return nil, summary, nil
	}

	fresh, dedupSummary, err := p.dedup.RemoveDuplicates(ctx, Documents(candidates))
	if err != nil {
		return nil, summary, fmt.Errorf("deduplication: %w", err)
	}
	summary.Dedup = dedupSummary
	p.log.Info().Int("kept", dedupSummary.Kept).Int("duplicates", dedupSummary.Duplicates).Msg("deduplication done")

	aligned := fresh
	if p.align != nil {
		aligned, err = p.align.Align(ctx, fresh)
		if err != nil {
			return nil, summary, fmt.Errorf("alignment: %w", err)
		}
	}
	summary.Aligned = len(aligned)
	p.log.Info().Int("aligned", len(aligned)).Int("dropped", len(fresh)-len(aligned)).Msg("alignment done")

	scored, scoring := p.scorer.ScoreAll(ctx, AttachDomains(candidates, aligned))
	summary.Scoring = scoring
	p.log.Info().
		Int("eligible", scoring.Scored).
		Int("below_threshold", scoring.BelowThreshold).
		Int("unscorable", scoring.Unscorable).
		Msg("scoring done")

	selected := guardrail.Select(scored, p.selection)
	summary.Selected = len(selected)
	return selected, summary, nil
}

// Documents returns the documents of candidates.
func Documents(candidates []types.Candidate) []types.Document {
	docs := make([]types.Document, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Document
	}
	return docs
}

// AttachDomains pairs each of docs with the domains of the first candidate
// sharing its URL.
func AttachDomains(candidates []types.Candidate, docs []types.Document) []types.Candidate {
	domains := make(map[string][]types.Domain, len(candidates))
	for _, c := range candidates {
		if _, ok := domains[c.Key()]; !ok {
			domains[c.Key()] = c.Domains
		}
	}
	out := make([]types.Candidate, len(docs))
	for i, d := range docs {
		out[i] = types.Candidate{Document: d, Domains: domains[d.Key()]}
	}
	return out
}

// WriteSummary prints per-stage counts to w.
func WriteSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "Input: %d documents\n", s.Input)
	fmt.Fprintf(w, "Dedup: %d kept, %d duplicates, %d cache rows purged\n", s.Dedup.Kept, s.Dedup.Duplicates, s.Dedup.Purged)
	fmt.Fprintf(w, "Alignment: %d kept\n", s.Aligned)
	fmt.Fprintf(w, "Scoring: %d eligible, %d below threshold, %d unscorable\n",
		s.Scoring.Scored, s.Scoring.BelowThreshold, s.Scoring.Unscorable)
	fmt.Fprintf(w, "Selected: %d documents\n", s.Selected)
}
