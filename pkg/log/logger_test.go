package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(WarnLevel), WithOutput(&WriterOutput{W: &buf}))
	l.Debug("dropped")
	l.Info("dropped too")
	l.Warn("kept")
	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("low-severity entries leaked: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn entry missing: %q", out)
	}
}

func TestWithFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&WriterOutput{W: &buf}))
	child := l.With(Component("queue"), Str("ns", "default"))
	child.Info("hello", Int("n", 3))
	out := buf.String()
	for _, want := range []string{"component=queue", "ns=default", "n=3", "hello"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithFormatter(&JSONFormatter{}), WithOutput(&WriterOutput{W: &buf}))
	l.Info("structured", Str("k", "v"))
	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if m["msg"] != "structured" || m["k"] != "v" || m["level"] != "INFO" {
		t.Fatalf("unexpected entry: %v", m)
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel("debug"); err != nil || lvl != DebugLevel {
		t.Fatalf("parse debug: %v %v", lvl, err)
	}
	if _, err := ParseLevel("shout"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	// empty defaults to info
	if lvl, err := ParseLevel(""); err != nil || lvl != InfoLevel {
		t.Fatalf("parse empty: %v %v", lvl, err)
	}
}

func TestApplyConfig(t *testing.T) {
	l, err := ApplyConfig(&Config{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("apply config: %v", err)
	}
	if l.GetLevel() != WarnLevel {
		t.Fatalf("want warn level, got %v", l.GetLevel())
	}
	if _, err := ApplyConfig(&Config{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
