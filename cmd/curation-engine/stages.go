// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/curation-engine/internal/guardrail"
	"github.com/pdiddy/curation-engine/internal/pipeline"
)

// --- dedup ---

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Drop documents already seen on an earlier day",
	Long: `Dedup canonicalizes each document URL (following redirects and
<link rel="canonical">), records it in the URL cache with today's date and
keeps the documents whose URL is new or was first seen today. Cache rows
older than the retention window are purged afterwards.`,
	RunE: runDedup,
}

func runDedup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	candidates, err := readCandidates(cmd)
	if err != nil {
		return err
	}

	store, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	kept, summary, err := newDeduplicator(cfg, store).RemoveDuplicates(cmd.Context(), pipeline.Documents(candidates))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Dedup: %d kept, %d duplicates, %d cache rows purged\n",
		summary.Kept, summary.Duplicates, summary.Purged)
	return writeCandidates(cmd, pipeline.AttachDomains(candidates, kept))
}

// --- align ---

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Drop documents whose titles are off topic",
	Long: `Align embeds the document titles together with the positive and negative
topic queries and keeps documents whose best positive similarity reaches
the threshold. If the embedding service is unavailable every document is
kept.`,
	RunE: runAlign,
}

func runAlign(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	candidates, err := readCandidates(cmd)
	if err != nil {
		return err
	}

	filter, err := newAligner(cfg)
	if err != nil {
		return err
	}
	kept, err := filter.Align(cmd.Context(), pipeline.Documents(candidates))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Alignment: %d of %d kept (threshold %.2f)\n", len(kept), len(candidates), filter.Threshold())
	return writeCandidates(cmd, pipeline.AttachDomains(candidates, kept))
}

// --- score ---

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score documents with the judge and select the best",
	Long: `Score runs the guardrail on every document: relevance is the share of
irrelevant anchors it beats, priority the share of its domains' anchors it
beats. Documents below the relevance minimum are dropped and the rest are
selected by combined score under the per-type caps.`,
	RunE: runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	candidates, err := readCandidates(cmd)
	if err != nil {
		return err
	}

	scorer, err := newScorer(cfg)
	if err != nil {
		return err
	}
	scored, summary := scorer.ScoreAll(cmd.Context(), candidates)
	selected := guardrail.Select(scored, cfg.Selection)

	fmt.Fprintf(os.Stderr, "Scoring: %d eligible, %d below threshold, %d unscorable; %d selected\n",
		summary.Scored, summary.BelowThreshold, summary.Unscorable, len(selected))
	return writeDocuments(cmd, selected)
}

func init() {
	addIOFlags(dedupCmd)
	addStageFlags(dedupCmd.Flags(), "sequential", "workers", "retention")

	addIOFlags(alignCmd)
	addStageFlags(alignCmd.Flags(), "threshold", "queries", "embed-url", "embed-model")

	addIOFlags(scoreCmd)
	addStageFlags(scoreCmd.Flags(),
		"backend", "judge-url", "model", "mode", "anchors", "min-relevance",
		"max-papers", "max-articles")

	rootCmd.AddCommand(dedupCmd, alignCmd, scoreCmd)
}
