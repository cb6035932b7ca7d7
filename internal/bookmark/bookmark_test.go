package bookmark

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileProvider_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	var p FileProvider

	token, err := p.Grant(dir)
	if err != nil {
		t.Fatalf("Grant() error: %v", err)
	}

	resolved, err := p.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	abs, _ := filepath.Abs(dir)
	if resolved != abs {
		t.Errorf("Resolve() = %q, want %q", resolved, abs)
	}
}

func TestFileProvider_GrantRejectsFiles(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	var p FileProvider
	if _, err := p.Grant(file); err == nil {
		t.Error("expected error granting access to a regular file")
	}
	if _, err := p.Grant(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error granting access to a missing directory")
	}
}

func TestFileProvider_ResolveStaleToken(t *testing.T) {
	dir := t.TempDir()
	gone := filepath.Join(dir, "mount")
	if err := os.Mkdir(gone, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	var p FileProvider
	token, err := p.Grant(gone)
	if err != nil {
		t.Fatalf("Grant() error: %v", err)
	}

	if err := os.Remove(gone); err != nil {
		t.Fatalf("failed to remove dir: %v", err)
	}
	if _, err := p.Resolve(token); err == nil {
		t.Error("expected error resolving token for removed directory")
	}

	if _, err := p.Resolve(nil); err == nil {
		t.Error("expected error resolving empty token")
	}
}
