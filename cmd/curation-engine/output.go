// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/curation-engine/internal/docfile"
	"github.com/pdiddy/curation-engine/pkg/types"
)

// addIOFlags defines the input and output flags shared by the stage commands.
func addIOFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("input", "i", "", "candidate documents (YAML or JSON; - for stdin)")
	cmd.Flags().StringP("output", "o", "", "write results to this file (.yaml or .json)")
	cmd.Flags().String("input-format", "yaml", "format of stdin input (yaml or json)")
	cmd.Flags().Bool("json", false, "print results as JSON instead of a table")
	_ = cmd.MarkFlagRequired("input")
}

func readCandidates(cmd *cobra.Command) ([]types.Candidate, error) {
	input, _ := cmd.Flags().GetString("input")
	if input == "-" {
		format, _ := cmd.Flags().GetString("input-format")
		return docfile.Read(os.Stdin, docfile.Format(format))
	}
	return docfile.ReadFile(input)
}

// writeDocuments saves ranked documents to --output, or prints them.
func writeDocuments(cmd *cobra.Command, docs []types.Document) error {
	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		if err := docfile.WriteFile(output, docs); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d documents to %s\n", len(docs), output)
		return nil
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return docfile.Write(os.Stdout, docs, docfile.FormatJSON)
	}
	docfile.FormatTable(docs, os.Stdout)
	return nil
}

// writeCandidates saves intermediate results, domains included, so another
// stage command can pick them up.
func writeCandidates(cmd *cobra.Command, candidates []types.Candidate) error {
	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		if err := docfile.WriteCandidatesFile(output, candidates); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d documents to %s\n", len(candidates), output)
		return nil
	}
	format := docfile.FormatYAML
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		format = docfile.FormatJSON
	}
	return docfile.WriteCandidates(os.Stdout, candidates, format)
}
