package edit

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestApply_UniqueOccurrence(t *testing.T) {
	content := "a\nb\nc\n"
	got, err := Apply(content, "b", "bb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a\nbb\nc\n" {
		t.Errorf("unexpected result: %q", got)
	}
	if len(got)-len(content) != len("bb")-len("b") {
		t.Errorf("length delta mismatch: %d", len(got)-len(content))
	}
}

func TestApply_NotFound(t *testing.T) {
	content := "a\nb\nc\n"
	got, err := Apply(content, "missing", "x")
	if err == nil {
		t.Fatal("expected error for missing target")
	}
	var ee *Error
	if !errors.As(err, &ee) || ee.Kind != TargetNotFound {
		t.Errorf("expected TargetNotFound, got %v", err)
	}
	if got != content {
		t.Error("content must be unmodified on failure")
	}
}

func TestApply_Ambiguous(t *testing.T) {
	content := "x = 1\nx = 1\n"
	got, err := Apply(content, "x = 1", "x = 2")
	if err == nil {
		t.Fatal("expected error for ambiguous target")
	}
	var ee *Error
	if !errors.As(err, &ee) || ee.Kind != TargetAmbiguous {
		t.Errorf("expected TargetAmbiguous, got %v", err)
	}
	if !strings.Contains(ee.Message, "2 times") {
		t.Errorf("expected occurrence count in message, got %q", ee.Message)
	}
	if got != content {
		t.Error("content must be unmodified on failure")
	}
}

func TestApply_EmptyTarget(t *testing.T) {
	if _, err := Apply("content", "", "x"); err == nil {
		t.Fatal("expected error for empty target")
	}
}

func TestParseReply_MultiEdit(t *testing.T) {
	reply := `{"edits": [
		{"file": "a.py", "old_code": "x = 1", "new_code": "x = 2"},
		{"old_code": "y = 1", "new_code": "y = 2"}
	]}`

	edits, err := ParseReply(reply, "main.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edits) != 2 {
		t.Fatalf("expected 2 edits, got %d", len(edits))
	}
	if edits[0].File != "a.py" {
		t.Errorf("expected explicit file kept, got %q", edits[0].File)
	}
	if edits[1].File != "main.py" {
		t.Errorf("expected default file applied, got %q", edits[1].File)
	}
}

func TestParseReply_LegacyFlatShape(t *testing.T) {
	reply := `{"old_code": "a", "new_code": "b"}`

	edits, err := ParseReply(reply, "main.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edits) != 1 || edits[0].File != "main.py" || edits[0].OldCode != "a" || edits[0].NewCode != "b" {
		t.Errorf("unexpected edits: %+v", edits)
	}
}

func TestParseReply_FencedJSON(t *testing.T) {
	reply := "```json\n{\"old_code\": \"a\", \"new_code\": \"b\"}\n```"

	edits, err := ParseReply(reply, "m.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(edits))
	}
}

func TestParseReply_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"garbage", "I think you should change line 5."},
		{"empty edits", `{"edits": []}`},
		{"missing new_code", `{"edits": [{"old_code": "a"}]}`},
		{"missing old_code", `{"edits": [{"new_code": "b"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReply(tt.reply, "m.py")
			var ee *Error
			if !errors.As(err, &ee) || ee.Kind != ResponseInvalid {
				t.Errorf("expected ResponseInvalid, got %v", err)
			}
		})
	}
}

func TestChangeSet_SequentialEditsCompose(t *testing.T) {
	cs := NewChangeSet(func(path string) (string, error) {
		return "", fmt.Errorf("no such file: %s", path)
	})
	cs.Preload("a.py", "one\ntwo\nthree\n")

	if err := cs.Apply(Edit{File: "a.py", OldCode: "two", NewCode: "2"}); err != nil {
		t.Fatalf("first edit: %v", err)
	}
	if err := cs.Apply(Edit{File: "a.py", OldCode: "three", NewCode: "3"}); err != nil {
		t.Fatalf("second edit: %v", err)
	}

	if got := cs.Files()["a.py"]; got != "one\n2\n3\n" {
		t.Errorf("unexpected composed content: %q", got)
	}
	if got := cs.Baseline("a.py"); got != "one\ntwo\nthree\n" {
		t.Errorf("baseline must stay original: %q", got)
	}
}

func TestChangeSet_LoadsUntouchedFile(t *testing.T) {
	cs := NewChangeSet(func(path string) (string, error) {
		if path == "b.py" {
			return "hello\n", nil
		}
		return "", fmt.Errorf("no such file: %s", path)
	})

	if err := cs.Apply(Edit{File: "b.py", OldCode: "hello", NewCode: "goodbye"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cs.Files()["b.py"]; got != "goodbye\n" {
		t.Errorf("unexpected content: %q", got)
	}
}

func TestChangeSet_FailedEditLeavesStateIntact(t *testing.T) {
	cs := NewChangeSet(func(path string) (string, error) {
		return "x\n", nil
	})
	cs.Preload("a.py", "x\n")

	if err := cs.Apply(Edit{File: "a.py", OldCode: "zzz", NewCode: "y"}); err == nil {
		t.Fatal("expected failure")
	}
	if got := cs.Files()["a.py"]; got != "x\n" {
		t.Errorf("content changed after failed edit: %q", got)
	}
}
