// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]log.Level{
		"debug": log.DebugLevel,
		"info":  log.InfoLevel,
		"warn":  log.WarnLevel,
		"error": log.ErrorLevel,
		"":      log.InfoLevel,
		"bogus": log.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_FiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, Options{Level: "warn", Format: "logfmt"})
	logger.Info("hidden")
	logger.Warn("shown", "module", "./a.mjs")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered:\n%s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "module=./a.mjs") {
		t.Errorf("warn record missing:\n%s", out)
	}
}

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	New(&buf, Options{Level: "debug", Format: "json"}).Debug("propagate", "steps", 3)

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if rec["msg"] != "propagate" {
		t.Errorf("msg = %v, want propagate", rec["msg"])
	}
	if p, _ := rec["prefix"].(string); !strings.HasPrefix(p, prefix) {
		t.Errorf("prefix = %v, want %s", rec["prefix"], prefix)
	}
}

func TestContext(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != slog.Default() {
		t.Error("empty context should yield slog.Default")
	}
	logger := Discard()
	if FromContext(WithLogger(context.Background(), logger)) != logger {
		t.Error("FromContext should return the stored logger")
	}
}
