package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"sqfix/internal/history"
	"sqfix/internal/issue"
	"sqfix/internal/sonar"
	"sqfix/internal/workflow"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *workflow.Report:
		return formatReportHuman(v), nil
	case []issue.Issue:
		return formatIssuesHuman(v), nil
	case []history.RunSummary:
		return formatRunsHuman(v), nil
	case []sonar.Rule:
		return formatRulesHuman(v), nil
	case *sonar.Rule:
		return formatRulesHuman([]sonar.Rule{*v}), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatReportHuman(r *workflow.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s (%s)\n", r.RunID, r.Provider)
	b.WriteString(strings.Repeat("=", 60) + "\n")
	if r.DryRun {
		b.WriteString("DRY RUN - no files were written\n")
	}
	fmt.Fprintf(&b, "Issues:    %d\n", r.Total)
	fmt.Fprintf(&b, "Succeeded: %d\n", r.Succeeded)
	fmt.Fprintf(&b, "Failed:    %d\n", r.Failed)
	fmt.Fprintf(&b, "Rate:      %.0f%%\n", r.SuccessRate*100)
	fmt.Fprintf(&b, "Duration:  %s\n", r.FinishedAt.Sub(r.StartedAt).Round(1e9))

	if len(r.Fixes) > 0 {
		b.WriteString("\nFixed:\n")
		for _, fix := range r.Fixes {
			fmt.Fprintf(&b, "  ✓ %s  %s (%d iteration(s))\n", fix.IssueKey, fix.FilePath, fix.Iterations)
		}
	}
	if len(r.Failures) > 0 {
		b.WriteString("\nFailed:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "  ✗ %s  %s: %s\n", f.IssueKey, f.FilePath, f.Error)
		}
	}
	return b.String()
}

func formatIssuesHuman(issues []issue.Issue) string {
	if len(issues) == 0 {
		return "No issues found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d issue(s)\n", len(issues))
	b.WriteString(strings.Repeat("=", 60) + "\n")
	for _, is := range issues {
		line := "-"
		if is.Line > 0 {
			line = fmt.Sprintf("%d", is.Line)
		}
		fmt.Fprintf(&b, "%-10s %-20s %s:%s\n    %s\n", is.Severity, is.Rule, is.FilePath(), line, is.Message)
	}
	return b.String()
}

func formatRunsHuman(runs []history.RunSummary) string {
	if len(runs) == 0 {
		return "No runs recorded."
	}
	var b strings.Builder
	for _, r := range runs {
		mode := ""
		if r.DryRun {
			mode = " (dry run)"
		}
		fmt.Fprintf(&b, "%s  %s  %s%s\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.RunID, r.Provider, mode)
		fmt.Fprintf(&b, "    %d issues, %d fixed, %d failed (%.0f%%)\n", r.Total, r.Succeeded, r.Failed, r.SuccessRate*100)
	}
	return b.String()
}

func formatRulesHuman(rules []sonar.Rule) string {
	if len(rules) == 0 {
		return "No rules found."
	}
	var b strings.Builder
	for _, r := range rules {
		fmt.Fprintf(&b, "%s  [%s/%s]\n    %s\n", r.Key, r.Type, r.Severity, r.Name)
		if detail := sonar.RuleDetail(&r); detail != "" {
			fmt.Fprintf(&b, "    %s\n", detail)
		}
	}
	return b.String()
}

// writeReportFile serializes the report to path, choosing YAML or JSON by
// file extension (.yaml/.yml → YAML, anything else → JSON).
func writeReportFile(path string, report *workflow.Report) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(report)
	default:
		data, err = json.MarshalIndent(report, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("serialize report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
