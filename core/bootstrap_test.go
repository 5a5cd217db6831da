package core

import (
	"os"
	"path/filepath"
	"testing"
)

func writeBootstrapFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bootstrap.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadBootstrapFileParsesAddresses(t *testing.T) {
	path := writeBootstrapFile(t, "# a comment\n\n10.0.0.1\n10.0.0.2:7000\n")
	nodes, err := LoadBootstrapFile(path)
	if err != nil {
		t.Fatalf("LoadBootstrapFile: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes (blank lines and comments skipped), got %d", len(nodes))
	}
	if nodes[0].Port != DefaultBootstrapPort {
		t.Fatalf("expected the default port for a bare address, got %d", nodes[0].Port)
	}
	if nodes[1].Port != 7000 {
		t.Fatalf("expected the explicit port to be honored, got %d", nodes[1].Port)
	}
}

func TestLoadBootstrapFileMissingReturnsNilNoError(t *testing.T) {
	nodes, err := LoadBootstrapFile(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	if err != nil {
		t.Fatalf("expected no error for a missing file, got %v", err)
	}
	if nodes != nil {
		t.Fatalf("expected a nil slice for a missing file, got %v", nodes)
	}
}
