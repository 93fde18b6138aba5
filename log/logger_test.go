package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("histfs", Warn, &buf)

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown 3") || !strings.Contains(out, "[histfs]") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("histfs", Debug, &buf).Named("engine")

	l.Info("hello")
	if !strings.Contains(buf.String(), "[histfs/engine]") {
		t.Fatalf("expected child name in output, got %q", buf.String())
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("histfs", Debug, &buf)
	l.JSON = true

	l.Error("broken %s", "ledger")

	var entry logEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if entry.Level != "ERROR" || entry.Message != "broken ledger" || entry.Service != "histfs" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestParse(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   Debug,
		"INFO":    Info,
		"":        Info,
		"warning": Warn,
		"error":   Error,
	}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("Parse(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := Parse("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
