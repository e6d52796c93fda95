package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWriter_LevelAndFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriter(&buf, "warn", "json")
	log.Info("dropped")
	log.Warn("kept", slog.String("course", "MCP"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("want one line above warn, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if rec["msg"] != "kept" || rec["course"] != "MCP" {
		t.Errorf("unexpected record: %v", rec)
	}

	buf.Reset()
	NewWriter(&buf, "", "TEXT").Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("want text output, got %q", buf.String())
	}
}

func TestFromContext_DefaultAndWith(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != slog.Default() {
		t.Error("empty context must yield the default logger")
	}

	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewWriter(&buf, "debug", "text"))
	ctx = With(ctx, "session", "s-1")
	FromContext(ctx).Debug("query")

	if !strings.Contains(buf.String(), "session=s-1") {
		t.Errorf("attribute not carried: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
