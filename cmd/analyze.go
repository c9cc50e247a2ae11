// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesmurdza/repo-health-check/internal/domain"
	"github.com/jamesmurdza/repo-health-check/internal/presenter"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <repository>",
	Short: "Analyze a repository and print its health metrics",
	Long: `Analyze computes health metrics for the given repository, which may be a
full URL (https://github.com/owner/repo) or an owner/repo pair. Raw API
payloads are cached, so repeated runs inside the cache window make no
network calls.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		logger := newLogger(cmd)

		id, err := domain.ParseIdentity(args[0])
		if err != nil {
			return err
		}

		analyzer, store, _, err := buildAnalyzer(cmd, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		set, err := analyzer.Analyze(ctx, id)
		if err != nil {
			return fmt.Errorf("analyze %s: %w", id, err)
		}

		payload := presenter.Dashboard(id, set)
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			data, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal payload: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		presenter.Render(os.Stdout, payload)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Bool("json", false, "Output the dashboard payload as JSON")
}
