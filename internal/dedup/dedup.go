// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup removes documents whose canonical URL was already seen on
// an earlier day, recording new URLs in the URL cache.
package dedup

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/curation-engine/internal/urlcache"
	"github.com/pdiddy/curation-engine/pkg/types"
)

const (
	defaultWorkers       = 16
	defaultRetentionDays = 7
)

// Canonicalizer maps a raw URL to its canonical form. Implementations must
// not fail; they fall back to a cleaned form of the input.
type Canonicalizer interface {
	Canonicalize(ctx context.Context, raw string) string
}

// Cache is the subset of the URL cache used by the deduplicator.
type Cache interface {
	InsertManyIfNew(ctx context.Context, entries []urlcache.Entry) ([]bool, error)
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
	Today() string
}

// Summary holds counts from one deduplication run.
type Summary struct {
	Kept       int
	Duplicates int
	Purged     int64
}

// Total returns the number of documents examined.
func (s Summary) Total() int {
	return s.Kept + s.Duplicates
}

// Deduplicator canonicalizes document URLs and filters repeats through the
// URL cache.
type Deduplicator struct {
	canon         Canonicalizer
	cache         Cache
	workers       int
	sequential    bool
	retentionDays int
	log           zerolog.Logger
}

// New returns a Deduplicator. A zero worker count takes the default of 16.
// A negative retention takes the default of 7 days; zero purges every row
// from before today.
func New(canon Canonicalizer, cache Cache, cfg types.DedupConfig, retentionDays int, log zerolog.Logger) *Deduplicator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if retentionDays < 0 {
		retentionDays = defaultRetentionDays
	}
	return &Deduplicator{
		canon:         canon,
		cache:         cache,
		workers:       workers,
		sequential:    cfg.Sequential,
		retentionDays: retentionDays,
		log:           log,
	}
}

// RemoveDuplicates returns the documents of docs, in input order, whose
// canonical URL is new or was first seen today. Every canonical URL is
// recorded with today's date, and rows past the retention window are
// purged afterwards. The returned documents are the inputs unchanged.
func (d *Deduplicator) RemoveDuplicates(ctx context.Context, docs []types.Document) ([]types.Document, Summary, error) {
	if len(docs) == 0 {
		return nil, Summary{}, nil
	}

	canonical := d.canonicalizeAll(ctx, docs)

	today := d.cache.Today()
	entries := make([]urlcache.Entry, len(docs))
	for i, u := range canonical {
		entries[i] = urlcache.Entry{URL: u, Date: today}
	}

	results, err := d.cache.InsertManyIfNew(ctx, entries)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("recording urls: %w", err)
	}
	if len(results) != len(docs) {
		return nil, Summary{}, fmt.Errorf("url cache returned %d results for %d urls", len(results), len(docs))
	}

	purged, err := d.cache.PurgeOlderThan(ctx, d.retentionDays)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("purging url cache: %w", err)
	}

	var summary Summary
	summary.Purged = purged
	kept := make([]types.Document, 0, len(docs))
	for i, doc := range docs {
		if results[i] {
			d.log.Info().Str("url", doc.URL).Str("canonical", canonical[i]).Msg("KEEP")
			kept = append(kept, doc)
			summary.Kept++
			continue
		}
		d.log.Info().Str("url", doc.URL).Str("canonical", canonical[i]).Msg("DUPLICATE")
		summary.Duplicates++
	}

	d.log.Debug().
		Int("kept", summary.Kept).
		Int("duplicates", summary.Duplicates).
		Int64("purged", summary.Purged).
		Msg("deduplication finished")

	return kept, summary, nil
}

// canonicalizeAll returns the canonical URL of each document, indexed like docs.
func (d *Deduplicator) canonicalizeAll(ctx context.Context, docs []types.Document) []string {
	canonical := make([]string, len(docs))

	if d.sequential {
		for i, doc := range docs {
			canonical[i] = d.canon.Canonicalize(ctx, doc.URL)
		}
		return canonical
	}

	var g errgroup.Group
	g.SetLimit(min(d.workers, len(docs)))
	for i, doc := range docs {
		g.Go(func() error {
			canonical[i] = d.canon.Canonicalize(ctx, doc.URL)
			return nil
		})
	}
	// Canonicalize never fails, so Wait only joins the workers.
	_ = g.Wait()

	return canonical
}
