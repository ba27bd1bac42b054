package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"clmeval/internal/config"
)

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CLMEVAL_STORAGE_ROOT", "s3://bucket/eval")
	t.Setenv("CLMEVAL_ACCESS_ROLE_ARN", "arn:aws:iam::1:role/x")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	wantState := filepath.Join(tempHome, ".local", "share", "clmeval")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.LockPath() != filepath.Join(wantState, "clmeval.lock") {
		t.Fatalf("unexpected lock path %q", cfg.LockPath())
	}
	if cfg.CLM.AccessRoleARN != "arn:aws:iam::1:role/x" {
		t.Fatalf("expected role from env, got %q", cfg.CLM.AccessRoleARN)
	}
	if cfg.CLM.LanguageCode != "en-US" || cfg.CLM.BaseModel != "WideBand" {
		t.Fatalf("unexpected clm defaults: %+v", cfg.CLM)
	}
	if cfg.Transcription.PollMax() != time.Minute {
		t.Fatalf("unexpected poll max %s", cfg.Transcription.PollMax())
	}
	bucket, prefix, ok := cfg.Storage.S3Location()
	if !ok || bucket != "bucket" || prefix != "eval" {
		t.Fatalf("unexpected s3 location: %q %q %v", bucket, prefix, ok)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "clmeval.toml")
	localRoot := filepath.Join(tempDir, "data")

	type payload struct {
		Storage struct {
			Root string `toml:"root"`
		} `toml:"storage"`
		Transcription struct {
			Backend        string `toml:"backend"`
			PollMaxSeconds int    `toml:"poll_max_seconds"`
		} `toml:"transcription"`
		Scoring struct {
			Engine string `toml:"engine"`
		} `toml:"scoring"`
	}
	custom := payload{}
	custom.Storage.Root = localRoot
	custom.Transcription.Backend = "WhisperX"
	custom.Transcription.PollMaxSeconds = 120
	custom.Scoring.Engine = "diff"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q %v", resolved, exists)
	}
	if cfg.Transcription.Backend != config.BackendWhisperX {
		t.Fatalf("expected backend normalized to whisperx, got %q", cfg.Transcription.Backend)
	}
	if cfg.Scoring.Engine != config.EngineDiff {
		t.Fatalf("expected diff engine, got %q", cfg.Scoring.Engine)
	}
	if cfg.Storage.Root != localRoot || cfg.Storage.IsS3() {
		t.Fatalf("unexpected storage root %q", cfg.Storage.Root)
	}
	if cfg.Transcription.PollMaxSeconds != 120 {
		t.Fatalf("expected poll max override, got %d", cfg.Transcription.PollMaxSeconds)
	}
}

func TestValidateRejectsInvalidCombinations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing root", func(c *config.Config) { c.Storage.Root = "" }, "storage.root is required"},
		{"bucketless root", func(c *config.Config) { c.Storage.Root = "s3://" }, "must name a bucket"},
		{"aws needs s3", func(c *config.Config) { c.Storage.Root = "/tmp/x" }, "requires an s3://"},
		{"whisperx self heal", func(c *config.Config) {
			c.Transcription.Backend = config.BackendWhisperX
			c.CLM.SelfHeal = true
		}, "self_heal"},
		{"unknown locale", func(c *config.Config) { c.CLM.LanguageCode = "tlh-KL" }, "clm.language_code"},
		{"locale without clm", func(c *config.Config) {
			c.CLM.LanguageCode = "fr-FR"
			c.CLM.SelfHeal = true
		}, "custom model support"},
		{"unknown engine", func(c *config.Config) { c.Scoring.Engine = "bleu" }, "scoring.engine"},
		{"unknown extractor", func(c *config.Config) { c.Keywords.Extractor = "spacy" }, "keywords.extractor"},
		{"poll order", func(c *config.Config) { c.Transcription.PollMaxSeconds = 1 }, "poll_max_seconds"},
		{"ntfy topic url", func(c *config.Config) { c.Notifications.NtfyTopic = "my-topic" }, "notifications.ntfy_topic"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Root = "s3://bucket/prefix"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestCreateSampleRoundTripsThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if !cfg.Storage.IsS3() {
		t.Fatalf("expected sample to point at s3, got %q", cfg.Storage.Root)
	}
}
