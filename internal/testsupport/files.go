package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SeedInputs lays out input/<folder>/{<folder>.txt, <folder>.mp3} under root
// for every folder -> ground truth pair.
func SeedInputs(t testing.TB, root string, truths map[string]string) {
	t.Helper()

	for folder, truth := range truths {
		dir := filepath.Join(root, "input", folder)
		WriteFile(t, filepath.Join(dir, folder+".txt"), truth)
		WriteFile(t, filepath.Join(dir, folder+".mp3"), "ID3")
	}
}
