// Package search finds cross-references to a symbol across a repository tree.
// It shells out to ripgrep when available and falls back to a line-oriented
// grep otherwise. Results are advisory context for the fix workflow, so the
// search is bounded in both match count and wall-clock time and degrades to
// partial or no results rather than blocking.
package search

import (
	"bufio"
	"context"
	"encoding/json"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Match is a single text match with limited surrounding context.
type Match struct {
	FilePath      string   `json:"filePath"`
	LineNumber    int      `json:"lineNumber"`
	LineContent   string   `json:"lineContent"`
	ContextBefore []string `json:"contextBefore,omitempty"`
	ContextAfter  []string `json:"contextAfter,omitempty"`
}

// Options bounds a search.
type Options struct {
	Globs      []string      // optional file glob filters, e.g. "*.py"
	MaxMatches int           // default 50
	Timeout    time.Duration // default 10s
}

const (
	defaultMaxMatches = 50
	defaultTimeout    = 10 * time.Second
	contextLines      = 2
)

// Find searches repoRoot for query and returns up to MaxMatches matches with
// repo-relative paths. A timeout or a missing search binary yields whatever
// was found, never an indefinite block.
func Find(ctx context.Context, repoRoot, query string, opts Options) ([]Match, error) {
	if opts.MaxMatches <= 0 {
		opts.MaxMatches = defaultMaxMatches
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	if _, err := exec.LookPath("rg"); err == nil {
		matches, err := ripgrep(ctx, repoRoot, query, opts)
		if err == nil {
			return matches, nil
		}
	}

	return grepFallback(ctx, repoRoot, query, opts)
}

func ripgrep(ctx context.Context, repoRoot, query string, opts Options) ([]Match, error) {
	args := []string{"--json", "--context", strconv.Itoa(contextLines), "--max-count", strconv.Itoa(opts.MaxMatches)}
	for _, g := range opts.Globs {
		args = append(args, "--glob", g)
	}
	args = append(args, query, repoRoot)

	cmd := exec.CommandContext(ctx, "rg", args...)
	out, err := cmd.Output()
	if err != nil {
		// exit status 1 means no matches, which is a valid empty result
		if ee, ok := err.(*exec.ExitError); ok && ee.ExitCode() == 1 {
			return nil, nil
		}
		return nil, err
	}

	return parseRipgrepOutput(string(out), repoRoot, opts.MaxMatches), nil
}

// ripgrep --json emits one JSON object per line; only match and context
// records carry data we need.
type rgRecord struct {
	Type string `json:"type"`
	Data struct {
		Path struct {
			Text string `json:"text"`
		} `json:"path"`
		LineNumber int `json:"line_number"`
		Lines      struct {
			Text string `json:"text"`
		} `json:"lines"`
	} `json:"data"`
}

func parseRipgrepOutput(output, repoRoot string, maxMatches int) []Match {
	var matches []Match
	var before []string

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var rec rgRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}

		switch rec.Type {
		case "match":
			matches = append(matches, Match{
				FilePath:      relativize(rec.Data.Path.Text, repoRoot),
				LineNumber:    rec.Data.LineNumber,
				LineContent:   strings.TrimRight(rec.Data.Lines.Text, "\r\n"),
				ContextBefore: before,
			})
			before = nil
		case "context":
			text := strings.TrimRight(rec.Data.Lines.Text, "\r\n")
			if n := len(matches); n > 0 && len(matches[n-1].ContextAfter) < contextLines {
				matches[n-1].ContextAfter = append(matches[n-1].ContextAfter, text)
			} else if len(before) < contextLines {
				before = append(before, text)
			}
		}
	}

	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}
	return matches
}

func grepFallback(ctx context.Context, repoRoot, query string, opts Options) ([]Match, error) {
	args := []string{"-rn", "-E", query}
	for _, g := range opts.Globs {
		args = append(args, "--include", g)
	}
	args = append(args, repoRoot)

	cmd := exec.CommandContext(ctx, "grep", args...)
	out, err := cmd.Output()
	if err != nil {
		// grep exits 1 on no matches; anything else degrades to no results
		return nil, nil
	}

	return parseGrepOutput(string(out), repoRoot, opts.MaxMatches), nil
}

func parseGrepOutput(output, repoRoot string, maxMatches int) []Match {
	var matches []Match
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 3 {
			continue
		}
		lineNum, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		matches = append(matches, Match{
			FilePath:    relativize(parts[0], repoRoot),
			LineNumber:  lineNum,
			LineContent: parts[2],
		})
		if len(matches) >= maxMatches {
			break
		}
	}
	return matches
}

// relativize converts an absolute match path to a repo-relative slash path.
func relativize(path, repoRoot string) string {
	if rel, err := filepath.Rel(repoRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}
