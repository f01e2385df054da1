// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package guardrail

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/curation-engine/internal/retry"
	"github.com/pdiddy/curation-engine/pkg/types"
)

const (
	maxPointwiseScore     = 10
	defaultPointwiseScore = 4
)

// PointwiseScorer asks the judge for a single 0-10 rating per document
// instead of running the anchor tournament. The rating, scaled to [0, 1],
// is used as both relevance and combined score.
type PointwiseScorer struct {
	judge       Judge
	workers     int
	maxAttempts int
	minScore    int
	log         zerolog.Logger
}

// NewPointwiseScorer returns a PointwiseScorer keeping documents rated at
// least cfg.MinPointwiseScore. Zero keeps every rated document; values
// outside 0-10 take the default of 4.
func NewPointwiseScorer(judge Judge, cfg types.GuardrailConfig, maxAttempts int, log zerolog.Logger) *PointwiseScorer {
	p := &PointwiseScorer{
		judge:       judge,
		workers:     cfg.Workers,
		maxAttempts: maxAttempts,
		minScore:    cfg.MinPointwiseScore,
		log:         log,
	}
	if p.workers <= 0 {
		p.workers = defaultWorkers
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = defaultMaxAttempts
	}
	if p.minScore < 0 || p.minScore > maxPointwiseScore {
		p.minScore = defaultPointwiseScore
	}
	return p
}

// Rate returns the judge's 0-10 rating of doc.
func (p *PointwiseScorer) Rate(ctx context.Context, doc types.Document) (int, error) {
	prompt, err := renderPointwisePrompt(doc)
	if err != nil {
		return 0, fmt.Errorf("rendering prompt: %w", err)
	}

	score, err := retry.Do(ctx, p.maxAttempts, retryDelay,
		func(err error, attempt int) {
			p.log.Debug().Err(err).Str("url", doc.URL).Int("attempt", attempt).Msg("rating attempt failed")
		},
		func(ctx context.Context) (int, error) {
			response, err := p.judge.Judge(ctx, prompt, pointwiseSystemPrompt)
			if err != nil {
				return 0, err
			}
			return ParsePointwiseScore(response)
		})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrUnscorable, doc.URL, err)
	}
	return score, nil
}

// ScoreAll rates candidates concurrently and returns those at or above the
// minimum rating, in input order.
func (p *PointwiseScorer) ScoreAll(ctx context.Context, candidates []types.Candidate) ([]types.ScoredDocument, Summary) {
	if len(candidates) == 0 {
		return nil, Summary{}
	}

	ratings := make([]int, len(candidates))
	errs := make([]error, len(candidates))

	var g errgroup.Group
	g.SetLimit(min(p.workers, len(candidates)))
	for i, c := range candidates {
		g.Go(func() error {
			ratings[i], errs[i] = p.Rate(ctx, c.Document)
			return nil
		})
	}
	_ = g.Wait()

	var summary Summary
	var eligible []types.ScoredDocument
	for i, c := range candidates {
		if errs[i] != nil {
			p.log.Warn().Err(errs[i]).Str("url", c.URL).Msg("dropping unscorable document")
			summary.Unscorable++
			continue
		}
		p.log.Info().Str("url", c.URL).Int("rating", ratings[i]).Msg("rated")
		if ratings[i] < p.minScore {
			summary.BelowThreshold++
			continue
		}
		scaled := float64(ratings[i]) / maxPointwiseScore
		eligible = append(eligible, types.ScoredDocument{
			Document:  c.Document,
			Relevance: scaled,
			Priority:  1,
			Combined:  scaled,
		})
		summary.Scored++
	}
	return eligible, summary
}
