package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sqfix/internal/sonar"
)

var (
	fetchSonarURL string
	fetchLimit    int
	fetchOutput   string
	fetchFormat   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <project-key>",
	Short: "Fetch unresolved issues for a project",
	Long: `Fetch queries the analysis server for unresolved issues of a project,
skipping external-linter rules, and prints or saves them as JSON for a later
"sqfix fix --issues" run.

Examples:
  sqfix fetch my-org_my-repo
  sqfix fetch my-org_my-repo --limit 50 --output issues.json`,
	Args: cobra.ExactArgs(1),
	Run:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchSonarURL, "sonar-url", "", "Analysis server URL")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 10, "Maximum number of issues to fetch")
	fetchCmd.Flags().StringVar(&fetchOutput, "output", "", "Write issues to this JSON file instead of stdout")
	fetchCmd.Flags().StringVar(&fetchFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) {
	repoRoot := mustRepoRoot()
	cfg := mustLoadConfig(repoRoot)
	if cmd.Flags().Changed("sonar-url") {
		cfg.SonarURL = fetchSonarURL
	}

	client := sonar.NewClient(cfg.SonarURL, "")
	issues, err := client.SearchIssues(cmd.Context(), args[0], fetchLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching issues: %v\n", err)
		os.Exit(1)
	}

	if fetchOutput != "" {
		data, err := json.MarshalIndent(issues, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(fetchOutput, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", fetchOutput, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d issue(s) to %s\n", len(issues), fetchOutput)
		return
	}

	output, err := FormatResponse(issues, OutputFormat(fetchFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
