package local_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clmeval/internal/storage"
	"clmeval/internal/storage/local"
	"clmeval/internal/testsupport"
)

func TestReadWriteList(t *testing.T) {
	ctx := context.Background()
	store, err := local.New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := store.Read(ctx, storage.LedgerKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := storage.WriteText(ctx, store, storage.LedgerKey, "model,folder\n"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := storage.WriteText(ctx, store, storage.LedgerKey, "model,folder,wer\n"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := storage.ReadText(ctx, store, storage.LedgerKey)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "model,folder,wer\n" {
		t.Fatalf("unexpected content %q", got)
	}

	if err := storage.WriteText(ctx, store, "result/leaderboard.txt", "x"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := storage.WriteText(ctx, store, "keywords/learned_keywords.txt", "Cat"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	objects, err := store.List(ctx, storage.ResultPrefix)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(objects) != 2 || objects[0].Key != "result/leaderboard.txt" || objects[1].Key != "result/runs.csv" {
		t.Fatalf("unexpected listing: %+v", objects)
	}
}

func TestListFoldersGroupsAndSkips(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	testsupport.SeedInputs(t, root, map[string]string{"a": "hello", "b": "world"})
	testsupport.WriteFile(t, filepath.Join(root, "input", "c", "only.txt"), "no media")
	testsupport.WriteFile(t, filepath.Join(root, "input", "stray.mp3"), "x")

	store, err := local.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	folders, skipped, err := storage.ListFolders(ctx, store)
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	if len(folders) != 2 || folders[0].ID != "a" || folders[1].ID != "b" {
		t.Fatalf("unexpected folders: %+v", folders)
	}
	if folders[0].TruthKey != "input/a/a.txt" || folders[0].MediaKey != "input/a/a.mp3" {
		t.Fatalf("unexpected keys: %+v", folders[0])
	}
	if len(skipped) != 1 || skipped[0].ID != "c" {
		t.Fatalf("unexpected skipped: %+v", skipped)
	}
}

func TestNewestPicksLatestModification(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := local.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, key := range []string{"training_data/a.txt", "training_data/b.txt"} {
		if err := storage.WriteText(ctx, store, key, key); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(store.Path("training_data/a.txt"), old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	objects, err := store.List(ctx, storage.TrainingDataPrefix)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	newest, ok := storage.Newest(objects)
	if !ok || newest.Key != "training_data/b.txt" {
		t.Fatalf("unexpected newest: %+v %v", newest, ok)
	}
}

func TestCleanKey(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"/input/a/../b.txt": "input/b.txt",
		"input/":            "input/",
		`keywords\x.txt`:    "keywords/x.txt",
	}
	for in, want := range cases {
		if got := storage.CleanKey(in); got != want {
			t.Fatalf("CleanKey(%q) = %q, want %q", in, got, want)
		}
	}
}
