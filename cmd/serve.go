// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jamesmurdza/repo-health-check/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard JSON API",
	Long: `Serve starts the HTTP API used by the dashboard rendering layer.
GET /api/analyze/{owner}/{repo} returns the formatted metrics payload.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)

		analyzer, store, cfg, err := buildAnalyzer(cmd, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		addr, _ := cmd.Flags().GetString("listen")
		if addr == "" {
			addr = cfg.Listen
		}
		return server.New(analyzer, logger).ListenAndServe(addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Listen address (overrides config)")
}
