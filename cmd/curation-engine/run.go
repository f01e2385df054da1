// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/curation-engine/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full curation pipeline",
	Long: `Run deduplicates the candidate documents against the URL cache, drops
those off topic, scores the rest with the judge and prints the selected
papers and articles, best first.

Documents seen on an earlier day are dropped. A document seen earlier the
same day is kept, so re-running a day's batch gives the same result.`,
	RunE: runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
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

	var aligner pipeline.Aligner
	if skip, _ := cmd.Flags().GetBool("skip-align"); !skip {
		f, err := newAligner(cfg)
		if err != nil {
			return err
		}
		aligner = f
	}
	scorer, err := newScorer(cfg)
	if err != nil {
		return err
	}

	p := pipeline.New(newDeduplicator(cfg, store), aligner, scorer, cfg.Selection, logger)
	selected, summary, err := p.Run(cmd.Context(), candidates)
	if err != nil {
		return err
	}

	pipeline.WriteSummary(os.Stderr, summary)
	return writeDocuments(cmd, selected)
}

func init() {
	addIOFlags(runCmd)
	runCmd.Flags().Bool("skip-align", false, "skip the embedding alignment stage")
	addStageFlags(runCmd.Flags(),
		"sequential", "workers", "retention",
		"threshold", "queries", "embed-url", "embed-model",
		"backend", "judge-url", "model", "mode", "anchors", "min-relevance",
		"max-papers", "max-articles")

	rootCmd.AddCommand(runCmd)
}
