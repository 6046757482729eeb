package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		level zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"garbage", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.level {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.level)
		}
	}
}

func TestNew(t *testing.T) {
	logger, err := New("info", false, "")
	if err != nil {
		t.Fatalf("Failed to build logger: %v", err)
	}

	if logger == nil {
		t.Fatal("Expected non-nil logger")
	}

	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("Expected info level to be enabled")
	}

	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug level to be disabled")
	}
}

func TestNewDevelopment(t *testing.T) {
	logger, err := New("debug", true, "")
	if err != nil {
		t.Fatalf("Failed to build logger: %v", err)
	}

	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug level to be enabled")
	}
}

func TestNewWithLogFile(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "logs", "pacer.log")

	logger, err := New("info", false, logPath)
	if err != nil {
		t.Fatalf("Failed to build logger: %v", err)
	}

	logger.Info("hello")
	logger.Sync()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Expected log file to exist: %v", err)
	}

	if len(data) == 0 {
		t.Error("Expected log file to contain output")
	}
}
