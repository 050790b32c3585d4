//go:build cgo

package lang

import (
	"context"
	"strings"
	"testing"
)

func TestValidate_CleanPython(t *testing.T) {
	source := []byte(`def add(a, b):
    return a + b
`)

	p := NewParser()
	result, err := p.Validate(context.Background(), source, LangPython)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected valid, got errors: %v", result.Errors)
	}
}

func TestValidate_BrokenPython(t *testing.T) {
	source := []byte(`def add(a, b:
    return a +
`)

	p := NewParser()
	result, err := p.Validate(context.Background(), source, LangPython)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result for broken source")
	}
	if len(result.Errors) == 0 {
		t.Fatal("expected at least one error")
	}
	if !strings.Contains(result.Errors[0], "line") {
		t.Errorf("expected error to name a line, got %q", result.Errors[0])
	}
}

func TestValidate_BrokenGo(t *testing.T) {
	source := []byte(`package main

func main() {
	fmt.Println("unterminated
}
`)

	p := NewParser()
	result, err := p.Validate(context.Background(), source, LangGo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result for broken source")
	}
}

func TestValidate_Idempotent(t *testing.T) {
	source := []byte(`package main

func main() {}
`)

	p := NewParser()
	for i := 0; i < 3; i++ {
		result, err := p.Validate(context.Background(), source, LangGo)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		if !result.Valid {
			t.Fatalf("run %d: expected valid, got errors: %v", i, result.Errors)
		}
	}
}

func TestValidate_UnsupportedLanguage(t *testing.T) {
	p := NewParser()
	if _, err := p.Validate(context.Background(), []byte("x"), Language("cobol")); err == nil {
		t.Fatal("expected error for unsupported language")
	}
}

func TestLocate_FindsEnclosingFunction(t *testing.T) {
	source := []byte(`def first():
    pass

def second():
    x = unused_variable
    return x
`)

	p := NewParser()
	got, err := p.Locate(context.Background(), source, LangPython, 5, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.StartLine > 5 || got.EndLine < 5 {
		t.Errorf("located node [%d,%d] does not contain line 5", got.StartLine, got.EndLine)
	}
	if !strings.Contains(got.ParentText, "unused_variable") && !strings.Contains(got.NodeText, "unused_variable") {
		t.Errorf("expected located context to include target line text, node=%q parent=%q", got.NodeText, got.ParentText)
	}
	if got.ParentKind == "" {
		t.Error("expected non-empty parent kind")
	}
}

func TestLocate_SiblingsBounded(t *testing.T) {
	source := []byte(`a = 1
b = 2
c = 3
d = 4
e = 5
f = 6
g = 7
`)

	p := NewParser()
	got, err := p.Locate(context.Background(), source, LangPython, 3, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Siblings) > 5 {
		t.Errorf("expected at most 5 siblings, got %d", len(got.Siblings))
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		path string
		want Language
		ok   bool
	}{
		{"src/main.py", LangPython, true},
		{"a/b/app.TS", LangTypeScript, true},
		{"pkg/server.go", LangGo, true},
		{"ui/View.tsx", LangTSX, true},
		{"README.md", "", false},
		{"Makefile", "", false},
	}

	for _, tt := range tests {
		got, ok := Detect(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Detect(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}
