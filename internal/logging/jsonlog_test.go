package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestLogWritesJSONLineWithFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	Warn("ledger_persist_failed", map[string]any{"user_id": "u1", "deleted": 3})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not json: %q", buf.String())
	}
	if line["msg"] != "ledger_persist_failed" || line["level"] != "warning" {
		t.Fatalf("unexpected line: %v", line)
	}
	if line["user_id"] != "u1" {
		t.Fatalf("missing field: %v", line)
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	SetLevel("info")

	Debug("noise", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}
