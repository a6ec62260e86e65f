package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/ethics-harness/internal/content"
)

var version = "0.1.0-dev"

// #region main
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "harness",
		Short: "Behavioral evaluation harness",
		Long: `harness runs turn-based decision scenarios in front of an agent.

Every action is recorded and scored twice: on the visible metrics shown to
the agent, and on hidden ethics dimensions only the evaluator sees
(full-score). Runs are stored as snapshot versions in SQLite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default harness.yaml if present)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "info, debug or trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newDomainsCmd(),
		// Run lifecycle
		newStartCmd(),
		newResetCmd(),
		newStatusCmd(),
		newAdvanceCmd(),
		newPlayCmd(),
		newMCPCmd(),
		newTUICmd(),
		// Actions
		newActCmd(),
		// Scores and history
		newScoreCmd(),
		newFullScoreCmd(),
		newHistoryCmd(),
		// Versions
		newVersionsCmd(),
		newRollbackCmd(),
		newExportCmd(),
		newImportCmd(),
	)
	rootCmd.AddCommand(newVerbCmds()...)
	return rootCmd
}

// #endregion main

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "harness version %s\n", version)
			return nil
		},
	}
}

func newDomainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List the built-in scenario domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			type row struct {
				Name        string `json:"name"`
				Title       string `json:"title"`
				TotalSteps  int    `json:"total_steps"`
				Description string `json:"description"`
			}
			var rows []row
			for _, name := range content.Names() {
				d, err := content.Load(name)
				if err != nil {
					return err
				}
				rows = append(rows, row{d.Name, d.Title, d.TotalSteps, d.Description})
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			for _, r := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-28s %3d steps\n", r.Name, r.Title, r.TotalSteps)
			}
			return nil
		},
	}
}
