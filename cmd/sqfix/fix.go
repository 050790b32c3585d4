package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sqfix/internal/history"
	"sqfix/internal/issue"
	"sqfix/internal/lang"
	"sqfix/internal/llm"
	"sqfix/internal/repo"
	"sqfix/internal/sonar"
	"sqfix/internal/workflow"
)

var (
	fixIssuesFile string
	fixProject    string
	fixSonarURL   string
	fixProvider   string
	fixModel      string
	fixMaxRetries int
	fixLimit      int
	fixMaxLines   int
	fixMaxRatio   float64
	fixDryRun     bool
	fixOutput     string
	fixFormat     string
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Fix reported issues with model-proposed targeted edits",
	Long: `Fix loads issues from a JSON file or fetches them from the analysis server,
orders them bottom-up per file, and processes them one at a time: analyze,
propose a targeted edit, validate syntax and change size, then write or retry.

Examples:
  sqfix fix --issues issues.json
  sqfix fix --project my-org_my-repo --limit 5 --dry-run
  sqfix fix --issues issues.json --provider openai --output report.yaml`,
	Args: cobra.NoArgs,
	Run:  runFix,
}

func init() {
	fixCmd.Flags().StringVar(&fixIssuesFile, "issues", "", "Path to a JSON issue file")
	fixCmd.Flags().StringVar(&fixProject, "project", "", "Project key to fetch issues for")
	fixCmd.Flags().StringVar(&fixSonarURL, "sonar-url", "", "Analysis server URL")
	fixCmd.Flags().StringVar(&fixProvider, "provider", "", "LLM provider (anthropic, openai)")
	fixCmd.Flags().StringVar(&fixModel, "model", "", "Model name override")
	fixCmd.Flags().IntVar(&fixMaxRetries, "max-retries", 0, "Attempts per issue before giving up")
	fixCmd.Flags().IntVar(&fixLimit, "limit", 0, "Maximum number of issues to process")
	fixCmd.Flags().IntVar(&fixMaxLines, "max-lines-changed", 0, "Absolute changed-line cap across touched files")
	fixCmd.Flags().Float64Var(&fixMaxRatio, "max-change-ratio", 0, "Per-file changed-line ratio cap")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "Validate and report without writing files")
	fixCmd.Flags().StringVar(&fixOutput, "output", "", "Write the full report to this file (.json or .yaml)")
	fixCmd.Flags().StringVar(&fixFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) {
	start := time.Now()
	repoRoot := mustRepoRoot()
	cfg := mustLoadConfig(repoRoot)

	// CLI flags override the config file.
	if cmd.Flags().Changed("sonar-url") {
		cfg.SonarURL = fixSonarURL
	}
	if cmd.Flags().Changed("provider") {
		cfg.Provider = fixProvider
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = fixModel
	}
	if cmd.Flags().Changed("max-retries") {
		cfg.MaxRetries = fixMaxRetries
	}
	if cmd.Flags().Changed("limit") {
		cfg.Limit = fixLimit
	}
	if cmd.Flags().Changed("max-lines-changed") {
		cfg.MaxLinesChanged = fixMaxLines
	}
	if cmd.Flags().Changed("max-change-ratio") {
		cfg.MaxChangeRatio = fixMaxRatio
	}

	logger := newLogger(cfg)

	if !lang.IsAvailable() {
		fmt.Fprintf(os.Stderr, "Error: syntax validation requires CGO (tree-sitter)\n")
		fmt.Fprintf(os.Stderr, "This binary was built without CGO support.\n")
		os.Exit(1)
	}

	provider, err := llm.Resolve(cfg.Provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rules := sonar.NewClient(cfg.SonarURL, "")

	issues, err := loadIssues(cmd.Context(), rules, cfg.Limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(issues) == 0 {
		fmt.Println("No issues to fix.")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := workflow.New(provider, repo.NewStore(repoRoot), logger, workflow.Config{
		MaxRetries:      cfg.MaxRetries,
		MaxLinesChanged: cfg.MaxLinesChanged,
		MaxChangeRatio:  cfg.MaxChangeRatio,
		DryRun:          fixDryRun,
		Model:           cfg.Model,
	}, rules)

	report, err := w.Run(ctx, issues)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if store, err := history.Open(repoRoot); err == nil {
		if err := store.RecordRun(report); err != nil {
			logger.Warn("could not record run history", map[string]interface{}{"error": err.Error()})
		}
		store.Close()
	} else {
		logger.Warn("could not open run history", map[string]interface{}{"error": err.Error()})
	}

	if fixOutput != "" {
		if err := writeReportFile(fixOutput, report); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	output, err := FormatResponse(report, OutputFormat(fixFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	logger.Debug("fix run completed", map[string]interface{}{
		"issues":   report.Total,
		"duration": time.Since(start).Milliseconds(),
	})
}

// loadIssues reads the issue feed from --issues or fetches it for --project.
// Exactly one source must be given.
func loadIssues(ctx context.Context, client *sonar.Client, limit int) ([]issue.Issue, error) {
	if fixIssuesFile != "" && fixProject != "" {
		return nil, fmt.Errorf("--issues and --project are mutually exclusive")
	}

	switch {
	case fixIssuesFile != "":
		issues, err := readIssueFile(fixIssuesFile)
		if err != nil {
			return nil, err
		}
		if limit > 0 && len(issues) > limit {
			issues = issues[:limit]
		}
		return issues, nil
	case fixProject != "":
		if limit <= 0 {
			limit = 10
		}
		return client.SearchIssues(ctx, fixProject, limit)
	default:
		return nil, fmt.Errorf("either --issues or --project is required")
	}
}

// readIssueFile accepts either a bare JSON array of issues or a search
// response object with an "issues" field.
func readIssueFile(path string) ([]issue.Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read issue file: %w", err)
	}

	var issues []issue.Issue
	if err := json.Unmarshal(data, &issues); err == nil {
		return issues, nil
	}

	var resp issue.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("issue file %s is not a JSON issue list: %w", path, err)
	}
	return resp.Issues, nil
}
