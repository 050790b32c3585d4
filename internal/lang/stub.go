//go:build !cgo

package lang

import (
	"context"
	"errors"
)

// ErrNoCGO is returned when parsing is unavailable due to missing CGO.
var ErrNoCGO = errors.New("syntax analysis requires CGO (tree-sitter)")

// Parser wraps tree-sitter parsing functionality.
// This is a stub implementation for non-CGO builds.
type Parser struct{}

// NewParser creates a new tree-sitter parser.
// Returns nil when CGO is disabled.
func NewParser() *Parser {
	return nil
}

// Validate reports syntax errors in source text.
// Stub implementation returns an error.
func (p *Parser) Validate(ctx context.Context, source []byte, lang Language) (*ValidationResult, error) {
	return nil, ErrNoCGO
}

// Locate finds the smallest syntax node containing the given position.
// Stub implementation returns an error.
func (p *Parser) Locate(ctx context.Context, source []byte, lang Language, line, column int) (*Context, error) {
	return nil, ErrNoCGO
}

// IsAvailable returns whether tree-sitter parsing is available.
// Returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}
