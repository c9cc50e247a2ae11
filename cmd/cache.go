// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesmurdza/repo-health-check/internal/cache"
	"github.com/jamesmurdza/repo-health-check/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the payload cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and hit/miss counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("entries: %d\nhits:    %d\nmisses:  %d\n", stats.Entries, stats.Hits, stats.Misses)
		return nil
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired cache entries",
	Long: `Sweep removes entries past their time-to-live. Expiry is already enforced
at read time; sweeping only reclaims storage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Sweep()
	},
}

func openStore(cmd *cobra.Command) (*cache.SQLiteStore, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cache.NewSQLiteStore(cfg.Cache.Path, cfg.Cache.TTL())
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
}
