package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: WarnLevel, Output: &buf})

	logger.Debug("hidden", nil)
	logger.Info("hidden", nil)
	logger.Warn("shown warn", nil)
	logger.Error("shown error", nil)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("low-severity messages must be filtered: %q", out)
	}
	if !strings.Contains(out, "shown warn") || !strings.Contains(out, "shown error") {
		t.Errorf("expected warn and error in output: %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})

	logger.Info("issue fixed", map[string]interface{}{"issueKey": "ABC-1"})

	var entry struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry.Level != "info" || entry.Message != "issue fixed" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Fields["issueKey"] != "ABC-1" {
		t.Errorf("expected field issueKey, got %v", entry.Fields)
	}
}

func TestHumanFormatFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: &buf})

	logger.Info("validated", map[string]interface{}{"files": 2})

	out := buf.String()
	if !strings.Contains(out, "[info] validated") || !strings.Contains(out, "files=2") {
		t.Errorf("unexpected human output: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("debug"); got != DebugLevel {
		t.Errorf("expected debug, got %s", got)
	}
	if got := ParseLevel("bogus"); got != InfoLevel {
		t.Errorf("expected info default, got %s", got)
	}
}
