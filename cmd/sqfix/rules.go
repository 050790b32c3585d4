package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sqfix/internal/sonar"
)

var (
	rulesSonarURL string
	rulesLanguage string
	rulesQuery    string
	rulesFormat   string
)

var rulesCmd = &cobra.Command{
	Use:   "rules [rule-key]",
	Short: "Look up rule descriptions from the analysis server",
	Long: `Rules shows the description behind a rule key, or searches rules for a
language when no key is given.

Examples:
  sqfix rules python:S1481
  sqfix rules --language py --query unused`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRules,
}

func init() {
	rulesCmd.Flags().StringVar(&rulesSonarURL, "sonar-url", "", "Analysis server URL")
	rulesCmd.Flags().StringVar(&rulesLanguage, "language", "py", "Language key for rule search (py, js, java, ...)")
	rulesCmd.Flags().StringVar(&rulesQuery, "query", "", "Search query for rule search")
	rulesCmd.Flags().StringVar(&rulesFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) {
	repoRoot := mustRepoRoot()
	cfg := mustLoadConfig(repoRoot)
	if cmd.Flags().Changed("sonar-url") {
		cfg.SonarURL = rulesSonarURL
	}

	client := sonar.NewClient(cfg.SonarURL, "")

	var resp interface{}
	if len(args) == 1 {
		rule, err := client.GetRule(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching rule %s: %v\n", args[0], err)
			os.Exit(1)
		}
		resp = rule
	} else {
		rules, err := client.SearchRules(cmd.Context(), rulesLanguage, rulesQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error searching rules: %v\n", err)
			os.Exit(1)
		}
		resp = rules
	}

	output, err := FormatResponse(resp, OutputFormat(rulesFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}
