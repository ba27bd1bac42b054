package deps_test

import (
	"os"
	"path/filepath"
	"testing"

	"clmeval/internal/config"
	"clmeval/internal/deps"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []deps.Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := deps.CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}

	missing := deps.Missing(results)
	if len(missing) != 2 {
		t.Fatalf("expected 2 missing, got %d", len(missing))
	}
}

func TestMissingIgnoresOptional(t *testing.T) {
	statuses := []deps.Status{{Name: "opt", Optional: true}, {Name: "ok", Available: true}}
	if got := deps.Missing(statuses); len(got) != 0 {
		t.Fatalf("expected nothing missing, got %#v", got)
	}
}

func TestRequirementsFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Scoring.Engine = config.EngineWER
	cfg.Scoring.WERBinary = "wer"
	cfg.Transcription.Backend = config.BackendAWS

	reqs := deps.Requirements(&cfg)
	if len(reqs) != 1 || reqs[0].Command != "wer" {
		t.Fatalf("expected only wer requirement, got %#v", reqs)
	}

	cfg.Scoring.Engine = config.EngineDiff
	cfg.Transcription.Backend = config.BackendWhisperX
	reqs = deps.Requirements(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected ffmpeg and uvx, got %#v", reqs)
	}
	if reqs[0].Command != "ffmpeg" || reqs[1].Command != "uvx" {
		t.Fatalf("unexpected commands: %#v", reqs)
	}

	if deps.Requirements(nil) != nil {
		t.Fatal("expected nil requirements for nil config")
	}
}
