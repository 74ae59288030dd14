package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p, err := DiscoverPaths()
	if err != nil {
		t.Fatalf("DiscoverPaths failed: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if p.CurrentDir != cwd {
		t.Errorf("CurrentDir = %q, want %q", p.CurrentDir, cwd)
	}
	if p.CacheDir != filepath.Join(home, ".pkgtree") {
		t.Errorf("CacheDir = %q", p.CacheDir)
	}
	if p.TreeDir != filepath.Join(cwd, "node_modules") {
		t.Errorf("TreeDir = %q", p.TreeDir)
	}
	if p.LockfilePath != filepath.Join(cwd, "pkgtree.lock") {
		t.Errorf("LockfilePath = %q", p.LockfilePath)
	}
}
