// Package lang provides language detection, syntax validation, and syntactic
// context location via tree-sitter.
package lang

import (
	"path/filepath"
	"strings"
)

// Language represents a supported programming language.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
)

// Detect returns the Language for a file path based on its extension.
func Detect(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return LangGo, true
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py", ".pyw":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".java":
		return LangJava, true
	case ".kt", ".kts":
		return LangKotlin, true
	default:
		return "", false
	}
}

// ValidationResult reports whether source text parses cleanly.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Context is the smallest syntactic unit containing a target position,
// plus its parent and sibling context.
type Context struct {
	NodeKind   string   `json:"nodeKind"`
	NodeText   string   `json:"nodeText"`
	ParentKind string   `json:"parentKind"`
	ParentText string   `json:"parentText"`
	Siblings   []string `json:"siblings,omitempty"`
	StartLine  int      `json:"startLine"`
	EndLine    int      `json:"endLine"`
}

// maxSiblings bounds how much sibling context is returned.
const maxSiblings = 5
