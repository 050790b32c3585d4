package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sqfix/internal/issue"
	"sqfix/internal/lang"
	"sqfix/internal/llm"
	"sqfix/internal/logging"
	"sqfix/internal/repo"
	"sqfix/internal/search"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: io.Discard})
}

func newTestWorkflow(p llm.Provider, store *repo.Store, cfg Config) *Workflow {
	w := &Workflow{provider: p, store: store, log: testLogger(), cfg: cfg.withDefaults()}
	w.check = func(_ context.Context, _ string, _ lang.Language) (*lang.ValidationResult, error) {
		return &lang.ValidationResult{Valid: true}, nil
	}
	w.locate = func(_ context.Context, _ string, _ lang.Language, _ int) (*lang.Context, error) {
		return nil, errors.New("parser unavailable")
	}
	w.findRefs = func(_ context.Context, _, _ string) ([]search.Match, error) {
		return nil, nil
	}
	w.describeRule = func(_ context.Context, _ string) string { return "" }
	return w
}

func editReply(t *testing.T, file, oldCode, newCode string) string {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{
		"edits": []map[string]string{{"file": file, "old_code": oldCode, "new_code": newCode}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func numberedLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func writeRepoFile(t *testing.T, dir, path, content string) {
	t.Helper()
	full := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRetryTermination(t *testing.T) {
	dir := t.TempDir()
	writeRepoFile(t, dir, "app.py", numberedLines(10))

	fix := editReply(t, "app.py", "line 2\n", "line two\n")
	provider := &llm.MockProvider{Responses: []string{"analysis", fix, fix, fix}}

	w := newTestWorkflow(provider, repo.NewStore(dir), Config{MaxRetries: 3})
	w.check = func(_ context.Context, _ string, _ lang.Language) (*lang.ValidationResult, error) {
		return &lang.ValidationResult{Valid: false, Errors: []string{"syntax error at line 2"}}, nil
	}

	report, err := w.Run(context.Background(), []issue.Issue{
		{Key: "I1", Rule: "python:S1", Component: "proj:app.py", Message: "m", Line: 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(provider.Calls) != 4 {
		t.Errorf("expected 1 analyze + 3 apply calls, got %d", len(provider.Calls))
	}
	if len(report.Failures) != 1 {
		t.Fatalf("expected exactly one FailedFix, got %d", len(report.Failures))
	}
	f := report.Failures[0]
	if f.Status != StatusValidationError {
		t.Errorf("unexpected failure status %q", f.Status)
	}
	if f.Iterations != 3 {
		t.Errorf("expected 3 iterations, got %d", f.Iterations)
	}
	if len(report.Fixes) != 0 {
		t.Errorf("no fix should be recorded, got %d", len(report.Fixes))
	}

	// Disk untouched: every candidate was rejected.
	got, _ := os.ReadFile(filepath.Join(dir, "app.py"))
	if string(got) != numberedLines(10) {
		t.Error("rejected candidates must never reach disk")
	}
}

func TestSizeGateRejectsByRatio(t *testing.T) {
	dir := t.TempDir()
	writeRepoFile(t, dir, "big.py", numberedLines(40))

	// Replace 5 lines with 1: six changed lines, ratio 6/40 = 0.15.
	// Under the 30-line absolute cap but over the 0.1 per-file ratio.
	oldCode := "line 10\nline 11\nline 12\nline 13\nline 14\n"
	fix := editReply(t, "big.py", oldCode, "pass\n")
	provider := &llm.MockProvider{Responses: []string{"analysis", fix, fix, fix}}

	w := newTestWorkflow(provider, repo.NewStore(dir), Config{MaxRetries: 3, MaxLinesChanged: 30, MaxChangeRatio: 0.1})

	report, err := w.Run(context.Background(), []issue.Issue{
		{Key: "I1", Component: "proj:big.py", Message: "m", Line: 12},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Failures) != 1 {
		t.Fatalf("expected a ratio rejection, got %d failures, %d fixes", len(report.Failures), len(report.Fixes))
	}
	if !strings.Contains(report.Failures[0].Error, "big.py") {
		t.Errorf("failure should name the offending file: %q", report.Failures[0].Error)
	}

	got, _ := os.ReadFile(filepath.Join(dir, "big.py"))
	if string(got) != numberedLines(40) {
		t.Error("rejected candidate must not be written")
	}
}

func TestDryRunRecordsSuccessWithoutWriting(t *testing.T) {
	dir := t.TempDir()
	original := numberedLines(10)
	writeRepoFile(t, dir, "app.py", original)

	fix := editReply(t, "app.py", "line 3\n", "line three\n")
	provider := &llm.MockProvider{Responses: []string{"analysis", fix}}

	w := newTestWorkflow(provider, repo.NewStore(dir), Config{DryRun: true})

	report, err := w.Run(context.Background(), []issue.Issue{
		{Key: "I1", Component: "proj:app.py", Message: "m", Line: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Fixes) != 1 {
		t.Fatalf("expected one accepted fix, got %d", len(report.Fixes))
	}
	if !strings.Contains(report.Fixes[0].FixedContent, "line three") {
		t.Error("fix record must carry the new content")
	}
	if !report.DryRun {
		t.Error("report must flag the dry run")
	}

	got, _ := os.ReadFile(filepath.Join(dir, "app.py"))
	if string(got) != original {
		t.Error("dry run must leave the file on disk unchanged")
	}
}

func TestParseFailureRetriesWithFeedback(t *testing.T) {
	dir := t.TempDir()
	writeRepoFile(t, dir, "app.py", numberedLines(10))

	fix := editReply(t, "app.py", "line 4\n", "line four\n")
	provider := &llm.MockProvider{Responses: []string{"analysis", "sorry, no JSON here", fix}}

	w := newTestWorkflow(provider, repo.NewStore(dir), Config{MaxRetries: 3})

	report, err := w.Run(context.Background(), []issue.Issue{
		{Key: "I1", Component: "proj:app.py", Message: "m", Line: 4},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Fixes) != 1 {
		t.Fatalf("expected recovery on second attempt, got %d fixes, %d failures", len(report.Fixes), len(report.Failures))
	}
	if got := report.Fixes[0].Iterations; got != 2 {
		t.Errorf("expected 2 iterations, got %d", got)
	}

	// The retry conversation must carry the parse-failure feedback.
	if len(provider.Calls) != 3 {
		t.Fatalf("expected 3 provider calls, got %d", len(provider.Calls))
	}
	retry := provider.Calls[2]
	var sawFeedback bool
	for _, m := range retry {
		if strings.Contains(m.Content, "previous fix attempt failed") {
			sawFeedback = true
		}
	}
	if !sawFeedback {
		t.Error("retry conversation is missing the failure feedback")
	}
}

func TestBatchedIssuesSeeUpdatedCache(t *testing.T) {
	dir := t.TempDir()
	writeRepoFile(t, dir, "app.py", numberedLines(25))

	// First issue (line 20) grows the file by two lines; the second
	// issue (line 5) must be fixed against the updated content.
	fix1 := editReply(t, "app.py", "line 20\n", "line 20\nline 20b\nline 20c\n")
	fix2 := editReply(t, "app.py", "line 5\n", "line five\n")
	provider := &llm.MockProvider{Responses: []string{"analysis 1", fix1, "analysis 2", fix2}}

	var locatedSources []string
	w := newTestWorkflow(provider, repo.NewStore(dir), Config{})
	w.locate = func(_ context.Context, source string, _ lang.Language, _ int) (*lang.Context, error) {
		locatedSources = append(locatedSources, source)
		return nil, errors.New("not needed")
	}

	report, err := w.Run(context.Background(), []issue.Issue{
		{Key: "I-low", Component: "proj:app.py", Message: "m", Line: 5},
		{Key: "I-high", Component: "proj:app.py", Message: "m", Line: 20},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Fixes) != 2 {
		t.Fatalf("expected both fixes accepted, got %d fixes, %d failures", len(report.Fixes), len(report.Failures))
	}

	// Bottom-up ordering: line 20 first.
	if report.Fixes[0].IssueKey != "I-high" || report.Fixes[1].IssueKey != "I-low" {
		t.Errorf("unexpected fix order: %s then %s", report.Fixes[0].IssueKey, report.Fixes[1].IssueKey)
	}

	// The second issue's locate call must see the grown content.
	if len(locatedSources) != 2 || !strings.Contains(locatedSources[1], "line 20b") {
		t.Error("second issue must be located against the updated cached content")
	}

	// The second fix prompt must embed the updated content too.
	fixPrompt := provider.Calls[3][len(provider.Calls[3])-1].Content
	if !strings.Contains(fixPrompt, "line 20b") {
		t.Error("second fix prompt must embed the updated file content")
	}

	got, _ := os.ReadFile(filepath.Join(dir, "app.py"))
	if !strings.Contains(string(got), "line 20c") || !strings.Contains(string(got), "line five") {
		t.Errorf("both edits must be persisted, got:\n%s", got)
	}
}

func TestUnreadableFileFailsWithoutModelCalls(t *testing.T) {
	dir := t.TempDir()
	provider := &llm.MockProvider{Responses: []string{"unused"}}
	w := newTestWorkflow(provider, repo.NewStore(dir), Config{})

	report, err := w.Run(context.Background(), []issue.Issue{
		{Key: "I1", Component: "proj:missing.py", Message: "m", Line: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(provider.Calls) != 0 {
		t.Errorf("no model call expected for an unreadable file, got %d", len(provider.Calls))
	}
	if len(report.Failures) != 1 || report.Failures[0].Status != StatusFailed {
		t.Fatalf("expected one failed record, got %+v", report.Failures)
	}
}

func TestReportTotals(t *testing.T) {
	dir := t.TempDir()
	writeRepoFile(t, dir, "a.py", numberedLines(10))

	fix := editReply(t, "a.py", "line 1\n", "line one\n")
	provider := &llm.MockProvider{Responses: []string{"analysis", fix, "analysis", "garbage", "garbage", "garbage"}}

	w := newTestWorkflow(provider, repo.NewStore(dir), Config{MaxRetries: 3})

	report, err := w.Run(context.Background(), []issue.Issue{
		{Key: "ok", Component: "proj:a.py", Message: "m", Line: 1},
		{Key: "bad", Component: "proj:missing.py", Message: "m", Line: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.RunID == "" {
		t.Error("report must carry a run id")
	}
	if report.Total != 2 || report.Succeeded != 1 || report.Failed != 1 {
		t.Errorf("unexpected totals: %+v", report)
	}
	if report.SuccessRate != 0.5 {
		t.Errorf("expected success rate 0.5, got %v", report.SuccessRate)
	}
	if report.Provider != "mock" {
		t.Errorf("unexpected provider %q", report.Provider)
	}
}

func TestCancelledContextStopsBeforeNextIssue(t *testing.T) {
	dir := t.TempDir()
	writeRepoFile(t, dir, "a.py", numberedLines(10))

	provider := &llm.MockProvider{Responses: []string{"unused"}}
	w := newTestWorkflow(provider, repo.NewStore(dir), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := w.Run(ctx, []issue.Issue{
		{Key: "I1", Component: "proj:a.py", Message: "m", Line: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(provider.Calls) != 0 {
		t.Error("cancelled run must not start a new issue")
	}
	if report.Total != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}
