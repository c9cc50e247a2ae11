// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesmurdza/repo-health-check/internal/cache"
	"github.com/jamesmurdza/repo-health-check/internal/config"
	"github.com/jamesmurdza/repo-health-check/internal/gateway"
	"github.com/jamesmurdza/repo-health-check/internal/usecase"
)

var rootCmd = &cobra.Command{
	Use:   "repo-health",
	Short: "Compute health metrics for a public GitHub repository.",
	Long: `repo-health fetches a repository's issues, pull requests, commits,
contributors, and community profile from the GitHub API, caches the raw
payloads for 24 hours, and derives health metrics: median close and merge
times, stale counts, recent activity, top contributors, and a composite
health score.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
}

// newLogger returns a logger honoring the --verbose flag: stderr when set,
// discarded otherwise. This is shared by every subcommand.
func newLogger(cmd *cobra.Command) *log.Logger {
	verbose, _ := cmd.InheritedFlags().GetBool("verbose")
	logger := log.New(io.Discard, "", log.LstdFlags)
	if verbose {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

// buildAnalyzer wires the store, gateway, and metrics engine from the
// resolved configuration. The caller owns closing the returned store.
func buildAnalyzer(cmd *cobra.Command, logger *log.Logger) (*usecase.Analyzer, *cache.SQLiteStore, *config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := cache.NewSQLiteStore(cfg.Cache.Path, cfg.Cache.TTL())
	if err != nil {
		return nil, nil, nil, err
	}

	gw, err := gateway.NewGitHubGateway(cfg.Token, cfg.Thresholds, logger)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	return usecase.NewAnalyzer(store, gw, cfg, logger), store, cfg, nil
}
