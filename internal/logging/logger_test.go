package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clmeval/internal/logging"
	"clmeval/internal/services"
	"clmeval/internal/testsupport"
)

func TestNewFromConfigWritesDailyFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("file message", logging.String("k", "v"))

	path := logging.LogFilePath(cfg.Paths.LogDir, time.Now())
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", content, err)
	}
	if record["msg"] != "file message" || record["k"] != "v" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestJSONLoggerWritesFixedWidthTimeAndTextDurations(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("polled", logging.Duration("elapsed", 90*time.Second+1500*time.Microsecond))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", content, err)
	}
	ts, _ := record["ts"].(string)
	if len(ts) != len(logging.JSONTimeLayout) {
		t.Fatalf("ts %q does not match layout %q", ts, logging.JSONTimeLayout)
	}
	if _, err := time.Parse(logging.JSONTimeLayout, ts); err != nil {
		t.Fatalf("parse ts: %v", err)
	}
	if record["level"] != "debug" || record["elapsed"] != "1m30.002s" {
		t.Fatalf("unexpected record: %v", record)
	}
	if caller, _ := record["caller"].(string); !strings.Contains(caller, "_test.go:") {
		t.Fatalf("expected caller at debug level, got %v", record)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
	if strings.Contains(string(content), "\x1b[") {
		t.Fatalf("expected no color codes in file output, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerRendersSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "subject.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithPair(services.WithRunID(context.Background(), "0123456789"), "ST", "lecture-1")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "orchestrator")).Info("scored", logging.Float64("wer", 12.5))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{"INFO [orchestrator] ST @ lecture-1 - scored", "    - wer: 12.5"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "0123456789") {
		t.Fatalf("expected run id hidden at info level, got %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-xyz")
	ctx = services.WithStage(ctx, "custom")
	ctx = services.WithPair(ctx, "clm-model-1", "folder-a")

	fields := logging.ContextFields(ctx)
	got := map[string]string{}
	for _, f := range fields {
		got[f.Key] = f.Value.String()
	}
	want := map[string]string{
		logging.FieldRunID:  "run-xyz",
		logging.FieldStage:  "custom",
		logging.FieldModel:  "clm-model-1",
		logging.FieldFolder: "folder-a",
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("field %s = %q, want %q", key, got[key], value)
		}
	}
}

func TestPruneDailyLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.Local)
	old := filepath.Join(dir, "clmeval-2024-05-01.log")
	recent := filepath.Join(dir, "clmeval-2024-06-20.log")
	today := logging.LogFilePath(dir, now)
	renamed := filepath.Join(dir, "clmeval-backup.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, recent, today, renamed, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := now.AddDate(0, 0, -90)
	for _, path := range []string{renamed, other, today} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	if removed := logging.PruneDailyLogs(logging.NewNop(), dir, 0, now); removed != 0 {
		t.Fatalf("zero retention removed %d files", removed)
	}
	removed := logging.PruneDailyLogs(logging.NewNop(), dir, 30, now)
	if removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}
	for _, path := range []string{old, renamed} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed, stat err %v", path, err)
		}
	}
	for _, path := range []string{recent, today, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}
