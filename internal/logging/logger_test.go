package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"audioconv/internal/config"
	"audioconv/internal/logging"
	"audioconv/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("service ready", logging.String("bind", cfg.Server.Bind))

	content, err := os.ReadFile(cfg.LogFilePath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "service ready") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "upload").Info("conversion complete", logging.String("format", "mp3"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", line)
	}
	if !strings.Contains(line, "INFO  upload: conversion complete") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "format=mp3") {
		t.Fatalf("expected attribute rendering, got %q", line)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with source")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected source information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerQuotesValuesWithSpaces(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "quoted.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("upload rejected", logging.String("filename", "my notes.txt"))

	content, _ := os.ReadFile(logPath)
	if !strings.Contains(string(content), `filename="my notes.txt"`) {
		t.Fatalf("expected quoted value, got %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
	if record["k"] != "v" {
		t.Fatalf("expected attribute k=v, got %v", record["k"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "invalid", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("visible")

	content, _ := os.ReadFile(logPath)
	if strings.Contains(string(content), "hidden") {
		t.Fatalf("debug line should be filtered at info level: %q", content)
	}
	if !strings.Contains(string(content), "visible") {
		t.Fatalf("expected info line, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := services.WithStage(context.Background(), "convert")
	ctx = services.WithRequestID(ctx, "req-xyz")

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, base).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if record[logging.FieldStage] != "convert" {
		t.Fatalf("stage = %v, want convert", record[logging.FieldStage])
	}
	if record[logging.FieldCorrelationID] != "req-xyz" {
		t.Fatalf("correlation_id = %v, want req-xyz", record[logging.FieldCorrelationID])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.WarnWithContext(logger, "cleanup failed", "upload_cleanup_failed",
		logging.Error(errors.New("permission denied")),
		logging.String(logging.FieldImpact, "upload remains on disk"),
	)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if record[logging.FieldEventType] != "upload_cleanup_failed" {
		t.Fatalf("unexpected event_type: %v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error_hint")
	}
	if record[logging.FieldImpact] != "upload remains on disk" {
		t.Fatalf("caller impact should win, got %v", record[logging.FieldImpact])
	}
}

func TestCleanupOldLogsRespectsExclusions(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.log")
	active := filepath.Join(dir, "audioconv.log")
	fresh := filepath.Join(dir, "fresh.log")
	for _, path := range []string{old, active, fresh} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, active} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 7, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "*.log",
		Exclude: []string{active},
	})
	if removed != 1 {
		t.Fatalf("expected 1 file removed, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{active, fresh} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to survive: %v", path, err)
		}
	}
}

func TestCleanupOldLogsDisabled(t *testing.T) {
	if got := logging.CleanupOldLogs(nil, 0, logging.RetentionTarget{Dir: t.TempDir()}); got != 0 {
		t.Fatalf("expected no removals when disabled, got %d", got)
	}
}

func TestToolOutputKeepsTail(t *testing.T) {
	long := strings.Repeat("a", 4096) + "Invalid data found"
	attr := logging.ToolOutput(long)
	if attr.Key != "tool_output" {
		t.Fatalf("key = %q", attr.Key)
	}
	value := attr.Value.String()
	if !strings.HasPrefix(value, "...") || !strings.HasSuffix(value, "Invalid data found") {
		t.Fatalf("expected truncated tail, got %d bytes", len(value))
	}
	if short := logging.ToolOutput("ok").Value.String(); short != "ok" {
		t.Fatalf("short output changed: %q", short)
	}
}
