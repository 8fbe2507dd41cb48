package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bindgraph/pkg/config"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		level log.Level
		emit  func(*log.Logger)
		want  bool
	}{
		{"info passes info", log.InfoLevel, func(l *log.Logger) { l.Info("graph sealed") }, true},
		{"info drops debug", log.InfoLevel, func(l *log.Logger) { l.Debug("container resolved") }, false},
		{"debug passes debug", log.DebugLevel, func(l *log.Logger) { l.Debug("container resolved") }, true},
		{"error drops warn", log.ErrorLevel, func(l *log.Logger) { l.Warn("metadata stale") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.emit(newLogger(&buf, tt.level, "text"))
			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("wrote output = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel, "text"))
	time.Sleep(5 * time.Millisecond)
	prog.done("Resolved 2 graphs")

	if !strings.Contains(buf.String(), "Resolved 2 graphs") {
		t.Errorf("progress output = %q, want the message", buf.String())
	}
}

func TestLoggerContext(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Fatal("loggerFromContext() = nil without a logger, want the default")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel, "text")
	got := loggerFromContext(withLogger(context.Background(), custom))
	if got != custom {
		t.Fatalf("loggerFromContext() = %p, want %p", got, custom)
	}
	got.Info("session started")
	if buf.Len() == 0 {
		t.Error("logger from context did not write to its output")
	}
}

func TestLoggerFormats(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"text", "INFO"},
		{"json", `"msg":"hello"`},
		{"logfmt", "msg=hello"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, log.InfoLevel, "text")
			configureLogger(logger, &buf, config.LogConfig{Format: tt.format})
			logger.Info("hello", "graph", "AppGraph")
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("%s output = %q, want it to contain %q", tt.format, buf.String(), tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	if got := parseLevel("debug"); got != log.DebugLevel {
		t.Errorf("parseLevel(debug) = %v, want debug", got)
	}
	if got := parseLevel("nonsense"); got != log.InfoLevel {
		t.Errorf("parseLevel(nonsense) = %v, want info", got)
	}
}

func TestLogOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindgraph.log")
	w, closer := logOutput(config.LogConfig{Output: "file", FilePath: path, MaxSize: 1})
	if closer == nil {
		t.Fatal("file output should return a closer")
	}
	if _, err := w.Write([]byte("line\n")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "line\n" {
		t.Errorf("log file = %q, %v", data, err)
	}

	if _, closer := logOutput(config.LogConfig{Output: "stderr"}); closer != nil {
		t.Error("stderr output should not return a closer")
	}
}
