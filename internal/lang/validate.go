//go:build cgo

package lang

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Validate parses source and reports syntax errors with their line numbers.
// Parsing is deterministic: re-validating content that passed always passes.
func (p *Parser) Validate(ctx context.Context, source []byte, lang Language) (*ValidationResult, error) {
	root, err := p.parse(ctx, source, lang)
	if err != nil {
		return nil, err
	}

	var errors []string
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if node.Type() == "ERROR" {
			errors = append(errors, fmt.Sprintf("syntax error at line %d", node.StartPoint().Row+1))
		} else if node.IsMissing() {
			errors = append(errors, fmt.Sprintf("missing %s at line %d", node.Type(), node.StartPoint().Row+1))
		}
		for i := uint32(0); i < node.ChildCount(); i++ {
			walk(node.Child(int(i)))
		}
	}
	walk(root)

	return &ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}, nil
}
