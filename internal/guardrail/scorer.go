// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package guardrail scores candidate documents with an LLM judge and selects
// the best of them under per-type caps.
//
// Relevance is the share of the universal irrelevant anchors a candidate
// beats in pairwise comparison. Priority is the share of the pooled anchors
// of the candidate's domains it beats. The combined score is their product.
package guardrail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/curation-engine/internal/retry"
	"github.com/pdiddy/curation-engine/pkg/types"
)

const (
	defaultBatchSize    = 5
	defaultWorkers      = 8
	defaultMaxAttempts  = 3
	defaultMinRelevance = 0.8
)

// retryDelay is the base backoff between judge attempts. Tests override it.
var retryDelay = 2 * time.Second

// ErrUnscorable marks a document whose judge calls kept failing. It is
// distinct from a zero score.
var ErrUnscorable = errors.New("document unscorable")

// Judge answers a prompt with free text.
type Judge interface {
	Judge(ctx context.Context, userPrompt, systemPrompt string) (string, error)
}

// Summary holds counts from one scoring run.
type Summary struct {
	Scored         int
	BelowThreshold int
	Unscorable     int
}

// Total returns the number of candidates examined.
func (s Summary) Total() int {
	return s.Scored + s.BelowThreshold + s.Unscorable
}

// Scorer runs the pairwise tournament.
type Scorer struct {
	judge        Judge
	anchors      *AnchorSet
	batchSize    int
	workers      int
	maxAttempts  int
	minRelevance float64
	log          zerolog.Logger
}

// NewScorer returns a Scorer. maxAttempts bounds the judge calls per batch.
// Zero settings take the defaults (batches of 5, 8 workers, 3 attempts).
func NewScorer(judge Judge, anchors *AnchorSet, cfg types.GuardrailConfig, maxAttempts int, log zerolog.Logger) *Scorer {
	s := &Scorer{
		judge:        judge,
		anchors:      anchors,
		batchSize:    cfg.BatchSize,
		workers:      cfg.Workers,
		maxAttempts:  maxAttempts,
		minRelevance: cfg.MinRelevance,
		log:          log,
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.workers <= 0 {
		s.workers = defaultWorkers
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.minRelevance < 0 || s.minRelevance > 1 {
		s.minRelevance = defaultMinRelevance
	}
	return s
}

// Relevance returns the share of irrelevant anchors doc beats.
func (s *Scorer) Relevance(ctx context.Context, doc types.Document) (float64, error) {
	return s.tournament(ctx, doc, s.anchors.Irrelevant)
}

// Priority returns the share of the pooled domain anchors doc beats. A
// document with no matching domain has priority 0.
func (s *Scorer) Priority(ctx context.Context, doc types.Document, domains []types.Domain) (float64, error) {
	return s.tournament(ctx, doc, s.anchors.Pool(domains))
}

// Score computes relevance and, when relevance clears the minimum, priority.
// ok is false when the candidate falls below the relevance minimum.
func (s *Scorer) Score(ctx context.Context, c types.Candidate) (scored types.ScoredDocument, ok bool, err error) {
	relevance, err := s.Relevance(ctx, c.Document)
	if err != nil {
		return types.ScoredDocument{}, false, err
	}
	if relevance < s.minRelevance {
		return types.ScoredDocument{Document: c.Document, Relevance: relevance}, false, nil
	}

	priority, err := s.Priority(ctx, c.Document, c.Domains)
	if err != nil {
		return types.ScoredDocument{}, false, err
	}
	return types.ScoredDocument{
		Document:  c.Document,
		Relevance: relevance,
		Priority:  priority,
		Combined:  relevance * priority,
	}, true, nil
}

// ScoreAll scores candidates concurrently and returns the eligible ones in
// input order. Candidates below the relevance minimum or unscorable are
// logged and left out.
func (s *Scorer) ScoreAll(ctx context.Context, candidates []types.Candidate) ([]types.ScoredDocument, Summary) {
	if len(candidates) == 0 {
		return nil, Summary{}
	}

	type outcome struct {
		scored types.ScoredDocument
		ok     bool
		err    error
	}
	outcomes := make([]outcome, len(candidates))

	var g errgroup.Group
	g.SetLimit(min(s.workers, len(candidates)))
	for i, c := range candidates {
		g.Go(func() error {
			scored, ok, err := s.Score(ctx, c)
			outcomes[i] = outcome{scored: scored, ok: ok, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var summary Summary
	var eligible []types.ScoredDocument
	for i, o := range outcomes {
		url := candidates[i].URL
		switch {
		case o.err != nil:
			s.log.Warn().Err(o.err).Str("url", url).Msg("dropping unscorable document")
			summary.Unscorable++
		case !o.ok:
			s.log.Info().Str("url", url).Float64("relevance", o.scored.Relevance).Msg("below relevance minimum")
			summary.BelowThreshold++
		default:
			s.log.Info().
				Str("url", url).
				Float64("relevance", o.scored.Relevance).
				Float64("priority", o.scored.Priority).
				Float64("combined", o.scored.Combined).
				Msg("scored")
			eligible = append(eligible, o.scored)
			summary.Scored++
		}
	}
	return eligible, summary
}

// tournament returns the share of anchors doc beats, judging them in
// sequential batches.
func (s *Scorer) tournament(ctx context.Context, doc types.Document, anchors []types.Document) (float64, error) {
	if len(anchors) == 0 {
		return 0, nil
	}

	wins := 0
	for start := 0; start < len(anchors); start += s.batchSize {
		batch := anchors[start:min(start+s.batchSize, len(anchors))]
		n, err := s.judgeBatch(ctx, doc, batch)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: batch at %d: %w", ErrUnscorable, doc.URL, start, err)
		}
		wins += n
	}
	return float64(wins) / float64(len(anchors)), nil
}

// judgeBatch asks the judge about one batch, re-asking on call or parse
// failure up to the attempt limit.
func (s *Scorer) judgeBatch(ctx context.Context, doc types.Document, batch []types.Document) (int, error) {
	prompt, err := renderPairwisePrompt(doc, batch)
	if err != nil {
		return 0, fmt.Errorf("rendering prompt: %w", err)
	}

	return retry.Do(ctx, s.maxAttempts, retryDelay,
		func(err error, attempt int) {
			s.log.Debug().Err(err).Str("url", doc.URL).Int("attempt", attempt).Msg("judge attempt failed")
		},
		func(ctx context.Context) (int, error) {
			response, err := s.judge.Judge(ctx, prompt, pairwiseSystemPrompt)
			if err != nil {
				return 0, err
			}
			s.log.Trace().Str("url", doc.URL).Str("response", response).Msg("judge response")
			return ParseVerdicts(response, len(batch))
		})
}
