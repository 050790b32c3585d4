package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sqfix/internal/history"
)

var (
	historyLimit  int
	historyRunID  string
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past fix runs",
	Long: `History lists previous runs recorded in the repository's .sqfix directory,
or the per-issue outcomes of one run when --run is given.

Examples:
  sqfix history
  sqfix history --limit 5
  sqfix history --run 1f0c2a4e-...`,
	Args: cobra.NoArgs,
	Run:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
	historyCmd.Flags().StringVar(&historyRunID, "run", "", "Show per-issue outcomes for this run id")
	historyCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	repoRoot := mustRepoRoot()

	store, err := history.Open(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	var resp interface{}
	if historyRunID != "" {
		fixes, err := store.ListFixes(historyRunID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading run %s: %v\n", historyRunID, err)
			os.Exit(1)
		}
		resp = fixes
	} else {
		runs, err := store.ListRuns(historyLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
			os.Exit(1)
		}
		resp = runs
	}

	output, err := FormatResponse(resp, OutputFormat(historyFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
