package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

func newBufferLogger(level, format string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := &Config{Level: level, Format: format, Output: "stdout", NoColor: true}
	return NewWithWriter(cfg, "faultline", &buf), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("expected a JSON log line, got %q: %v", line, err)
	}
	return out
}

func TestGetGlobalLogger_BeforeInit(t *testing.T) {
	globalMu.Lock()
	prev := global
	global = nil
	globalMu.Unlock()
	defer SetGlobalLogger(prev)

	if GetGlobalLogger() == nil {
		t.Fatal("expected a fallback logger")
	}
	if GetGlobalLogger() != GetGlobalLogger() {
		t.Error("fallback logger should be created once")
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	l, buf := newBufferLogger("info", FormatJSON)
	l.Info("stored entry", Fields(FieldEntryID, "err_1", FieldKind, "network"))

	out := decodeLine(t, buf)
	if out["message"] != "stored entry" {
		t.Errorf("unexpected message %v", out["message"])
	}
	if out[FieldEntryID] != "err_1" || out[FieldKind] != "network" {
		t.Errorf("missing fields in %v", out)
	}
	if out[FieldService] != "faultline" {
		t.Errorf("expected service field, got %v", out[FieldService])
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger("warn", FormatJSON)
	l.Info("hidden")
	l.Debug("hidden too")
	if buf.Len() != 0 {
		t.Fatalf("expected info/debug to be filtered, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("expected warn to be written")
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l, buf := newBufferLogger("invalid-level", FormatJSON)
	l.Info("falls back to info")
	if buf.Len() == 0 {
		t.Error("invalid level should fall back to info")
	}
}

func TestWithComponent(t *testing.T) {
	l, buf := newBufferLogger("info", FormatJSON)
	l.WithComponent("logstore").Info("x")
	if decodeLine(t, buf)[FieldComponent] != "logstore" {
		t.Error("expected component field")
	}
}

func TestWithContext_RequestID(t *testing.T) {
	l, buf := newBufferLogger("info", FormatJSON)
	ctx := ContextWithRequestID(context.Background(), "req-42")
	l.WithContext(ctx).Info("x")
	if decodeLine(t, buf)[FieldRequestID] != "req-42" {
		t.Error("expected request id field")
	}
}

func TestMultipleFieldMaps(t *testing.T) {
	l, buf := newBufferLogger("info", FormatJSON)
	l.Error("failed", Fields("a", 1), ErrorFields("persist", fmt.Errorf("boom")))
	out := decodeLine(t, buf)
	if out["a"] != float64(1) || out[FieldError] != "boom" || out[FieldOperation] != "persist" {
		t.Errorf("unexpected fields %v", out)
	}
}

func TestConsoleFormat(t *testing.T) {
	l, buf := newBufferLogger("info", FormatConsole)
	l.Warn("retrying", Fields(FieldAttempt, 2))
	s := buf.String()
	if !strings.Contains(s, "[WRN]") || !strings.Contains(s, "retrying") {
		t.Errorf("unexpected console output %q", s)
	}
	if !strings.Contains(s, "[FAU]") {
		t.Errorf("expected service tag in console output %q", s)
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := &Config{Level: "info", Format: FormatJSON, Output: "file", File: path}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	l := New(cfg, "faultline")
	l.Info("to file")
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("discarded")
	l.WithComponent("x").Info("discarded")
}

func TestSetGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	l, buf := newBufferLogger("info", FormatJSON)
	SetGlobalLogger(l)
	Get("sse").Info("through global")
	if !strings.Contains(buf.String(), "through global") {
		t.Error("Get should derive from the global logger")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != FormatConsole || cfg.Output != "stdout" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if !cfg.Timestamp {
		t.Error("timestamp should be forced on")
	}

	fileCfg := Config{Output: "file"}
	fileCfg.ApplyDefaults()
	if fileCfg.File == "" || fileCfg.MaxSize != 100 || fileCfg.MaxBackups != 3 || fileCfg.MaxAge != 28 {
		t.Errorf("unexpected file defaults %+v", fileCfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "debug", Format: FormatJSON, Output: "stdout"}, false},
		{"bad level", Config{Level: "loud", Format: FormatJSON, Output: "stdout"}, true},
		{"bad format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"bad output", Config{Level: "info", Format: FormatJSON, Output: "syslog"}, true},
		{"bad component level", Config{Level: "info", Format: FormatJSON, Output: "stdout", Components: map[string]string{"database": "verbose"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestComponentLevels(t *testing.T) {
	t.Cleanup(func() { _ = SetComponentLevels(nil) })
	if err := SetComponentLevels(map[string]string{"database": "debug", "sse": "error"}); err != nil {
		t.Fatalf("SetComponentLevels: %v", err)
	}

	var buf bytes.Buffer
	base := NewWithWriter(&Config{Level: "info", Format: FormatJSON}, "faultline", &buf)

	tests := []struct {
		component string
		log       func(*Logger)
		want      bool
	}{
		{"database", func(l *Logger) { l.Debug("query") }, true},
		{"storage", func(l *Logger) { l.Debug("query") }, false},
		{"storage", func(l *Logger) { l.Info("opened") }, true},
		{"sse", func(l *Logger) { l.Warn("slow client") }, false},
	}
	for _, tt := range tests {
		buf.Reset()
		tt.log(base.WithComponent(tt.component))
		if got := buf.Len() > 0; got != tt.want {
			t.Errorf("%s: logged = %v, want %v (%s)", tt.component, got, tt.want, buf.String())
		}
	}

	if err := SetComponentLevels(map[string]string{"x": "loud"}); err == nil {
		t.Error("expected error for an unknown level")
	}
	if Get("retry") == nil {
		t.Error("Get returned nil")
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name string
		kvs  []interface{}
		want int
	}{
		{"empty", nil, 0},
		{"pairs", []interface{}{"a", 1, "b", 2}, 2},
		{"odd", []interface{}{"a", 1, "b"}, 1},
		{"non-string key", []interface{}{1, "x", "b", 2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(Fields(tt.kvs...)); got != tt.want {
				t.Errorf("expected %d fields, got %d", tt.want, got)
			}
		})
	}
}

func TestErrorFields(t *testing.T) {
	ef := ErrorFields("persist", fmt.Errorf("disk full"))
	if ef[FieldOperation] != "persist" || ef[FieldError] != "disk full" {
		t.Errorf("unexpected error fields %v", ef)
	}
}
