//go:build cgo

package lang

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
)

// Locate finds the smallest syntax node containing the given 1-indexed line
// (and 0-indexed column), descending from the root and at each level picking
// the child whose span contains the target. The node's parent and up to 5
// sibling texts are returned for broader context.
func (p *Parser) Locate(ctx context.Context, source []byte, lang Language, line, column int) (*Context, error) {
	root, err := p.parse(ctx, source, lang)
	if err != nil {
		return nil, err
	}

	// tree-sitter rows are 0-indexed
	node := deepestNodeAt(root, uint32(line-1), uint32(column))

	parent := node.Parent()
	if parent == nil {
		parent = node
	}

	var siblings []string
	for i := uint32(0); i < parent.ChildCount() && i < maxSiblings; i++ {
		child := parent.Child(int(i))
		if child != nil {
			siblings = append(siblings, nodeText(child, source))
		}
	}

	return &Context{
		NodeKind:   node.Type(),
		NodeText:   nodeText(node, source),
		ParentKind: parent.Type(),
		ParentText: nodeText(parent, source),
		Siblings:   siblings,
		StartLine:  int(node.StartPoint().Row) + 1,
		EndLine:    int(node.EndPoint().Row) + 1,
	}, nil
}

// deepestNodeAt recursively finds the most specific node containing the position.
func deepestNodeAt(node *sitter.Node, row, col uint32) *sitter.Node {
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child == nil {
			continue
		}
		start, end := child.StartPoint(), child.EndPoint()
		if start.Row > row || end.Row < row {
			continue
		}
		if (start.Row < row && end.Row > row) ||
			(start.Row == row && start.Column <= col) ||
			(end.Row == row && end.Column >= col) {
			return deepestNodeAt(child, row, col)
		}
	}
	return node
}

// nodeText returns the node's source slice without copying beyond the final string.
func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
