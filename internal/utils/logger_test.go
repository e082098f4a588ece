package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"escpos-service/internal/config"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zapcore.Level{"debug": zapcore.DebugLevel, "": zapcore.InfoLevel, "error": zapcore.ErrorLevel} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("invalid level accepted")
	}
}

func TestNewLoggerWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "service.log")
	logger, err := NewLogger(&config.LoggingConfig{Level: "info", Format: "json", Output: path, MaxSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	NewJobLogger(logger, "job-1", "TM-T88V").Success()
	_ = CloseLogger(logger)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}

func TestLogDatabaseQuery(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sl := NewServiceLogger(zap.New(core), "printer-repository")

	sl.LogDatabaseQuery("SELECT 1", time.Millisecond, nil)
	sl.LogDatabaseQuery("SELECT 2", time.Millisecond, errors.New("connection reset"))

	all := logs.All()
	if len(all) != 2 {
		t.Fatalf("got %d entries, want 2", len(all))
	}
	if all[0].Level != zapcore.DebugLevel || all[0].ContextMap()["query"] != "SELECT 1" {
		t.Errorf("success entry = %v %v", all[0].Level, all[0].ContextMap())
	}
	if all[1].Level != zapcore.ErrorLevel || all[1].ContextMap()["service"] != "printer-repository" {
		t.Errorf("failure entry = %v %v", all[1].Level, all[1].ContextMap())
	}
}
