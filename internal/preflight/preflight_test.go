package preflight_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clmeval/internal/config"
	"clmeval/internal/preflight"
	"clmeval/internal/storage"
	"clmeval/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := preflight.CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := preflight.CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := preflight.CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckStore(t *testing.T) {
	store := testsupport.NewMemStore()
	if result := preflight.CheckStore(context.Background(), store); !result.Passed || !strings.Contains(result.Detail, "no usable input folders") {
		t.Fatalf("expected empty store to pass with a note, got %#v", result)
	}

	store.SeedFolders(t, map[string]string{"f1": "hello world"})
	store.Put(t, "input/broken/notes.txt", "x")
	result := preflight.CheckStore(context.Background(), store)
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "1 folders, 1 skipped") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

type failingStore struct{ storage.Store }

func (failingStore) List(context.Context, string) ([]storage.ObjectInfo, error) {
	return nil, errors.New("access denied")
}

func (failingStore) URI(key string) string { return "s3://bucket/" + key }

func TestCheckStoreListError(t *testing.T) {
	result := preflight.CheckStore(context.Background(), failingStore{})
	if result.Passed || !strings.Contains(result.Detail, "access denied") {
		t.Fatalf("expected list error, got %#v", result)
	}
}

func TestCheckAccessRole(t *testing.T) {
	if preflight.CheckAccessRole("").Passed {
		t.Fatal("expected failure for empty arn")
	}
	if preflight.CheckAccessRole("role/thing").Passed {
		t.Fatal("expected failure for malformed arn")
	}
	if !preflight.CheckAccessRole("arn:aws:iam::123456789012:role/clm").Passed {
		t.Fatal("expected pass for well-formed arn")
	}
}

func TestCheckEndpoint(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	result := preflight.CheckEndpoint(context.Background(), "pages", srv.URL, "clmeval-test")
	if !result.Passed {
		t.Fatalf("expected 404 to count as reachable, got %s", result.Detail)
	}
	if agent != "clmeval-test" {
		t.Fatalf("expected user agent to be sent, got %q", agent)
	}
}

func TestCheckEndpoint_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if preflight.CheckEndpoint(context.Background(), "pages", srv.URL, "").Passed {
		t.Fatal("expected failure for 502")
	}
	if preflight.CheckEndpoint(context.Background(), "pages", "", "").Passed {
		t.Fatal("expected failure for missing url")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := preflight.RunAll(context.Background(), nil, nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Storage.Root = t.TempDir()
	cfg.CLM.SelfHeal = false
	cfg.TrainingData.Enabled = false
	cfg.Scoring.Engine = config.EngineDiff
	cfg.Transcription.Backend = config.BackendAWS

	results := preflight.RunAll(context.Background(), &cfg, nil)
	// state, log and storage root
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d: %#v", len(results), results)
	}
	if failed := preflight.Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %s", preflight.Summarize(failed))
	}
}

func TestRunAll_FlagsMissingRoleAndBinary(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Storage.Root = t.TempDir()
	cfg.CLM.SelfHeal = true
	cfg.CLM.AccessRoleARN = ""
	cfg.TrainingData.Enabled = false
	cfg.Scoring.Engine = config.EngineWER
	cfg.Scoring.WERBinary = "clearly-not-present-wer"
	cfg.Transcription.Backend = config.BackendAWS

	failed := preflight.Failed(preflight.RunAll(context.Background(), &cfg, nil))
	if len(failed) != 2 {
		t.Fatalf("expected role and binary failures, got %#v", failed)
	}
	summary := preflight.Summarize(failed)
	if !strings.Contains(summary, "CLM access role") || !strings.Contains(summary, "Binary wer") {
		t.Fatalf("unexpected summary %q", summary)
	}
}
