package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"matrix_router/pkg/config"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil))) })
	for _, level := range []string{"debug", "info", "warn", "error", "unknown"} {
		Init(level)
		if Log == nil {
			t.Errorf("Init(%s) should set Log", level)
		}
		if slog.Default() != Log {
			t.Errorf("Init(%s) should install the default logger", level)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(Config{Level: "info", Format: "json"}, &buf)).Info("hello", "k", 1)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("json output not parseable: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "hello" || rec["k"] != float64(1) {
		t.Errorf("unexpected record %v", rec)
	}

	buf.Reset()
	l := slog.New(NewHandler(Config{Level: "warn", Format: "text"}, &buf))
	l.Info("dropped")
	l.Warn("kept")
	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "msg=kept") {
		t.Errorf("unexpected text output %q", out)
	}
}

func TestFileOutput(t *testing.T) {
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil))) })
	path := filepath.Join(t.TempDir(), "nested", "app.log")

	InitWithConfig(FromConfig(config.LogConfig{Level: "info", Format: "json", Output: "file", FilePath: path, MaxSize: 1}))
	WithRequestID("req-1").Info("written")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !strings.Contains(string(data), `"request_id":"req-1"`) {
		t.Errorf("log file missing request id: %s", data)
	}
}
