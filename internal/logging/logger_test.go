package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"scrivener/internal/config"
	"scrivener/internal/logging"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = dir
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "debug"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	logger.Info("hello", logging.String("k", "v"))

	data, err := os.ReadFile(filepath.Join(dir, "scrivener.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log output in file")
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("should not panic", logging.Error(nil))
}

func TestCleanupOldLogsRespectsExclusions(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "run-old.log")
	keepFile := filepath.Join(dir, "scrivener.log")
	for _, path := range []string{oldFile, keepFile} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %q: %v", path, err)
		}
		stale := time.Now().AddDate(0, 0, -90)
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes %q: %v", path, err)
		}
	}

	logging.CleanupOldLogs(logging.NewNop(), dir, "*.log", 30, keepFile)

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Fatalf("expected %q pruned, err=%v", oldFile, err)
	}
	if _, err := os.Stat(keepFile); err != nil {
		t.Fatalf("excluded file should survive: %v", err)
	}
}
