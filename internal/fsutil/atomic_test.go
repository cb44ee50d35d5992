package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "style.css")

	if err := WriteFileAtomic(path, []byte("a"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("b"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic overwrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "b" {
		t.Errorf("Expected content 'b', got %q", data)
	}

	// No temp files should be left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp.") {
			t.Errorf("Temp file left behind: %s", e.Name())
		}
	}
}

func TestCopyFileAtomicAndHash(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jsonc")
	dst := filepath.Join(dir, "out", "config.jsonc")

	if err := os.WriteFile(src, []byte(`{"layer":"top"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileAtomic(src, dst); err != nil {
		t.Fatalf("CopyFileAtomic failed: %v", err)
	}

	if !SameContent(src, dst) {
		t.Error("Expected copied file to hash identically")
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected mode 0600 to be preserved, got %o", info.Mode().Perm())
	}
}

func TestCopyFileAtomicMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFileAtomic(filepath.Join(dir, "missing"), filepath.Join(dir, "dst")); err == nil {
		t.Error("Expected error for missing source")
	}
	if Exists(filepath.Join(dir, "dst")) {
		t.Error("Destination should not be created when the source is missing")
	}
}

func TestWriteJSONAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "includes.json")
	if err := WriteJSONAtomic(path, map[string]any{"position": "top"}); err != nil {
		t.Fatalf("WriteJSONAtomic failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	want := "{\n    \"position\": \"top\"\n}\n"
	if string(data) != want {
		t.Errorf("Expected %q, got %q", want, data)
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Expected error hashing missing file")
	}
	if SameContent("/nonexistent/a", "/nonexistent/b") {
		t.Error("Missing files must not compare equal")
	}
}
