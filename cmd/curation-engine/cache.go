// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/curation-engine/internal/canonical"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the URL cache",
	Long: `Cache manages the SQLite database of canonical URLs and the date each
was first seen. Use subcommands to count rows, purge old ones, clear the
cache or look up a URL.`,
}

// --- count subcommand ---

var cacheCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of cached URLs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openCache(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%d urls in %s\n", n, store.Path())
		return nil
	},
}

// --- purge subcommand ---

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete URLs first seen before the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openCache(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.PurgeOlderThan(cmd.Context(), cfg.Cache.RetentionDays)
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d urls older than %d days\n", removed, cfg.Cache.RetentionDays)
		return nil
	},
}

// --- clear subcommand ---

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to clear the cache without --yes")
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openCache(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.RemoveAll(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Cleared %s\n", store.Path())
		return nil
	},
}

// --- exists subcommand ---

var cacheExistsCmd = &cobra.Command{
	Use:   "exists <url>",
	Short: "Report whether a URL was seen on an earlier day",
	Long: `Exists canonicalizes the URL the same way dedup does and reports whether
it was recorded before today. Use --offline to skip the network and only
normalize the URL text.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openCache(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		url := canonical.Clean(args[0])
		if offline, _ := cmd.Flags().GetBool("offline"); !offline {
			url = canonical.New(cfg.Dedup, logger).Canonicalize(cmd.Context(), args[0])
		}

		seen, err := store.Exists(cmd.Context(), url)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%t\n", url, seen)
		return nil
	},
}

func init() {
	addStageFlags(cachePurgeCmd.Flags(), "retention")
	cacheClearCmd.Flags().Bool("yes", false, "confirm deleting every row")
	cacheExistsCmd.Flags().Bool("offline", false, "normalize the URL without fetching it")

	cacheCmd.AddCommand(cacheCountCmd, cachePurgeCmd, cacheClearCmd, cacheExistsCmd)
	rootCmd.AddCommand(cacheCmd)
}
