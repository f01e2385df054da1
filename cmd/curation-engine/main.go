// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the curation-engine CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/curation-engine/internal/logging"
	"github.com/pdiddy/curation-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets secrets.Set

	// logger is built from the log settings before any subcommand runs.
	logger = zerolog.Nop()
)

// rootCmd is the base command for the curation-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "curation-engine",
	Short: "Filter and rank scraped documents for a daily digest",
	Long: `curation-engine takes candidate documents collected by upstream scrapers
and decides which are worth reading. Documents pass through four stages:
URL deduplication against a local SQLite cache, embedding-based topic
alignment, LLM-judged relevance and priority scoring against anchor
documents, and capped selection of the best papers and articles.

Each stage is also available on its own: dedup, align and score.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		bindFlags(cmd, map[string]string{
			"log-level":  "log.level",
			"log-format": "log.format",
			"cache-path": "cache.path",
		})
		log, err := logging.New(viper.GetString("log.level"), viper.GetString("log.format"), os.Stderr)
		if err != nil {
			return err
		}
		logger = log

		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug().Str("file", used).Msg("using config file")
		}

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.Debug().Strs("keys", s.Keys()).Msg("loaded secrets")
		}

		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults(viper.GetViper())

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./curation-engine.yaml or ~/.config/curation-engine/curation-engine.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console or json)")
	rootCmd.PersistentFlags().String("cache-path", "", "SQLite URL cache file (env DEDUPLICATION_DB_PATH)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("curation-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "curation-engine"))
		}
	}

	bindEnv(viper.GetViper())
	_ = viper.ReadInConfig()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
