package datadir

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestEnsureRunDirFresh(t *testing.T) {
	root := t.TempDir()

	location, err := EnsureRunDir(root, "jl", []string{"product-information"})
	if err != nil {
		t.Fatalf("EnsureRunDir: %v", err)
	}
	if filepath.Base(location) != Today() {
		t.Fatalf("location = %q, want dated directory", location)
	}
}

func TestEnsureRunDirRotatesPrefixes(t *testing.T) {
	root := t.TempDir()
	prefixes := []string{"product-information", "product-reviews"}

	location, err := EnsureRunDir(root, "jl", prefixes)
	if err != nil {
		t.Fatalf("EnsureRunDir: %v", err)
	}
	for _, p := range prefixes {
		touch(t, filepath.Join(location, p+"-latest.jl"))
	}

	// Second run of the same day: latest files become version-1.
	if _, err := EnsureRunDir(root, "jl", prefixes); err != nil {
		t.Fatalf("EnsureRunDir second run: %v", err)
	}
	for _, p := range prefixes {
		if _, err := os.Stat(filepath.Join(location, p+"-version-1.jl")); err != nil {
			t.Fatalf("expected %s-version-1.jl: %v", p, err)
		}
		if _, err := os.Stat(filepath.Join(location, p+"-latest.jl")); !os.IsNotExist(err) {
			t.Fatalf("%s-latest.jl should have been rotated", p)
		}
	}
}

func TestEnsureRunDirRotatesBareLatest(t *testing.T) {
	root := t.TempDir()

	location, err := EnsureRunDir(root, "json", nil)
	if err != nil {
		t.Fatalf("EnsureRunDir: %v", err)
	}
	touch(t, filepath.Join(location, "latest.json"))

	if _, err := EnsureRunDir(root, "json", nil); err != nil {
		t.Fatalf("EnsureRunDir second run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(location, "version-1.json")); err != nil {
		t.Fatalf("expected version-1.json: %v", err)
	}
}

func TestClean(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "data")
	if err := os.MkdirAll(filepath.Join(root, "jsonlines"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if _, err := Clean(root, false); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Fatalf("data root should be gone")
	}

	// Cleaning a missing root is a no-op.
	if _, err := Clean(root, false); err != nil {
		t.Fatalf("Clean on missing root: %v", err)
	}
}

func TestCleanBackup(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "data")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	touch(t, filepath.Join(root, "keep.jl"))

	dest, err := Clean(root, true)
	if err != nil {
		t.Fatalf("Clean with backup: %v", err)
	}
	if dest == "" {
		t.Fatalf("expected backup destination")
	}
	if _, err := os.Stat(filepath.Join(dest, "keep.jl")); err != nil {
		t.Fatalf("backup should keep files: %v", err)
	}
}
