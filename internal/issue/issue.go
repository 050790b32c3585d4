// Package issue defines the code-quality issue model consumed by the fix workflow.
package issue

import "strings"

// TextRange is the precise location of an issue in source code.
type TextRange struct {
	StartLine   int `json:"startLine"`
	EndLine     int `json:"endLine"`
	StartOffset int `json:"startOffset,omitempty"`
	EndOffset   int `json:"endOffset,omitempty"`
}

// Issue is a single finding reported by the analysis service.
// Issues are created once from an external feed and read-only afterwards.
type Issue struct {
	Key       string     `json:"key"`
	Rule      string     `json:"rule"`
	Severity  string     `json:"severity"`
	Component string     `json:"component"`
	Message   string     `json:"message"`
	Line      int        `json:"line,omitempty"`
	TextRange *TextRange `json:"textRange,omitempty"`
	Type      string     `json:"type"`
	Tags      []string   `json:"tags,omitempty"`
}

// FilePath extracts the repo-relative file path from the component identifier.
// The analysis service formats components as "project_key:path/to/file".
func (i Issue) FilePath() string {
	if idx := strings.Index(i.Component, ":"); idx >= 0 {
		return i.Component[idx+1:]
	}
	return i.Component
}

// SearchResponse is one page of results from the issue search endpoint.
type SearchResponse struct {
	Issues   []Issue `json:"issues"`
	Total    int     `json:"total"`
	Page     int     `json:"p"`
	PageSize int     `json:"ps"`
}

// FilterByType returns the issues matching any of the given types
// (e.g. BUG, VULNERABILITY, CODE_SMELL).
func (r *SearchResponse) FilterByType(types ...string) []Issue {
	var out []Issue
	for _, is := range r.Issues {
		for _, t := range types {
			if is.Type == t {
				out = append(out, is)
				break
			}
		}
	}
	return out
}
