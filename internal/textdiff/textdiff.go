// Package textdiff computes unified diffs and quantitative change metrics
// between two versions of file content.
package textdiff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Stats summarizes the line-level change between two contents.
type Stats struct {
	Additions     int `json:"additions"`
	Deletions     int `json:"deletions"`
	OriginalLines int `json:"originalLines"`
	ModifiedLines int `json:"modifiedLines"`
}

// Total is the combined number of added and removed lines.
func (s Stats) Total() int {
	return s.Additions + s.Deletions
}

// Ratio is the fraction of the original file the change touches.
func (s Stats) Ratio() float64 {
	lines := s.OriginalLines
	if lines < 1 {
		lines = 1
	}
	return float64(s.Total()) / float64(lines)
}

// Unified returns a unified diff between original and modified, labeled
// a/<path> and b/<path>.
func Unified(original, modified, path string) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(modified),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", path, err)
	}
	return text, nil
}

// Compute counts added and removed lines between original and modified.
func Compute(original, modified string) Stats {
	stats := Stats{
		OriginalLines: countLines(original),
		ModifiedLines: countLines(modified),
	}

	matcher := difflib.NewMatcher(difflib.SplitLines(original), difflib.SplitLines(modified))
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'r':
			stats.Deletions += op.I2 - op.I1
			stats.Additions += op.J2 - op.J1
		case 'd':
			stats.Deletions += op.I2 - op.I1
		case 'i':
			stats.Additions += op.J2 - op.J1
		}
	}
	return stats
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Split(strings.TrimSuffix(s, "\n"), "\n"))
}
