// Package workflow drives the fix-validation-retry state machine: it selects
// issues in batch order, asks the language model for targeted edits, applies
// them transactionally in memory, and persists only candidates that pass the
// syntax and change-size gates.
package workflow

import (
	"time"
)

// Status categorizes how an issue's processing ended.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusFailed          Status = "failed"
	StatusValidationError Status = "validation_error"
)

// FixResult records an accepted fix.
type FixResult struct {
	IssueKey        string `json:"issueKey" yaml:"issueKey"`
	FilePath        string `json:"filePath" yaml:"filePath"`
	OriginalContent string `json:"originalContent" yaml:"originalContent"`
	FixedContent    string `json:"fixedContent" yaml:"fixedContent"`
	Diff            string `json:"diff" yaml:"diff"`
	Status          Status `json:"status" yaml:"status"`
	Provider        string `json:"provider" yaml:"provider"`
	Iterations      int    `json:"iterations" yaml:"iterations"`
}

// FailedFix records an issue that exhausted its retries or could not be
// processed at all.
type FailedFix struct {
	IssueKey   string `json:"issueKey" yaml:"issueKey"`
	FilePath   string `json:"filePath" yaml:"filePath"`
	Status     Status `json:"status" yaml:"status"`
	Error      string `json:"error" yaml:"error"`
	Provider   string `json:"provider" yaml:"provider"`
	Iterations int    `json:"iterations" yaml:"iterations"`
}

// Report is the terminal summary of a run.
type Report struct {
	RunID       string      `json:"runId" yaml:"runId"`
	Provider    string      `json:"provider" yaml:"provider"`
	DryRun      bool        `json:"dryRun" yaml:"dryRun"`
	StartedAt   time.Time   `json:"startedAt" yaml:"startedAt"`
	FinishedAt  time.Time   `json:"finishedAt" yaml:"finishedAt"`
	Total       int         `json:"total" yaml:"total"`
	Succeeded   int         `json:"succeeded" yaml:"succeeded"`
	Failed      int         `json:"failed" yaml:"failed"`
	SuccessRate float64     `json:"successRate" yaml:"successRate"`
	Fixes       []FixResult `json:"fixes" yaml:"fixes"`
	Failures    []FailedFix `json:"failures" yaml:"failures"`
}

// Config holds the workflow's safety and retry settings.
type Config struct {
	MaxRetries      int
	MaxLinesChanged int
	MaxChangeRatio  float64
	DryRun          bool

	// Model overrides the provider's default model when set.
	Model string
}

// DefaultConfig returns the standard thresholds: three attempts per issue,
// at most 30 changed lines across all touched files, and at most 10% of any
// single file rewritten.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		MaxLinesChanged: 30,
		MaxChangeRatio:  0.1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.MaxLinesChanged <= 0 {
		c.MaxLinesChanged = d.MaxLinesChanged
	}
	if c.MaxChangeRatio <= 0 {
		c.MaxChangeRatio = d.MaxChangeRatio
	}
	return c
}
