// Package edit applies exact, uniqueness-checked search-and-replace edits to
// file content. The uniqueness requirement is the core safety property of the
// fix workflow: an edit whose target occurs zero times or more than once is
// rejected outright, forcing callers to provide enough surrounding context to
// pin the change precisely.
package edit

import (
	"fmt"
	"strings"
)

// FailureKind classifies why an edit could not be applied or decoded.
type FailureKind string

const (
	// TargetNotFound indicates old_code does not occur in the content.
	TargetNotFound FailureKind = "TARGET_NOT_FOUND"
	// TargetAmbiguous indicates old_code occurs more than once.
	TargetAmbiguous FailureKind = "TARGET_AMBIGUOUS"
	// ResponseInvalid indicates the model reply could not be decoded into edits.
	ResponseInvalid FailureKind = "RESPONSE_INVALID"
)

// Error is a recoverable edit failure. The workflow routes it through its
// retry policy rather than surfacing it to the caller.
type Error struct {
	Kind    FailureKind
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Edit is a single targeted replacement in one file.
type Edit struct {
	File    string `json:"file"`
	OldCode string `json:"old_code"`
	NewCode string `json:"new_code"`
}

// Apply replaces the single occurrence of oldCode in content with newCode.
// If oldCode occurs zero times or more than once, the content is returned
// unmodified along with an *Error naming the condition.
func Apply(content, oldCode, newCode string) (string, error) {
	if oldCode == "" {
		return content, &Error{Kind: TargetNotFound, Message: "empty edit target"}
	}

	switch n := strings.Count(content, oldCode); {
	case n == 0:
		return content, &Error{
			Kind:    TargetNotFound,
			Message: "old_code not found in file content; it must be copied exactly, including whitespace",
		}
	case n > 1:
		return content, &Error{
			Kind:    TargetAmbiguous,
			Message: fmt.Sprintf("old_code occurs %d times; include surrounding lines to make it unique", n),
		}
	}

	return strings.Replace(content, oldCode, newCode, 1), nil
}
