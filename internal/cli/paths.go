package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds the directories and files the CLI works with, discovered once
// at startup.
type Paths struct {
	CurrentDir   string // working directory the command was invoked from
	HomeDir      string // user home directory
	CacheDir     string // tarball cache, ~/.pkgtree
	TreeDir      string // dependency tree, ./node_modules
	LockfilePath string // ./pkgtree.lock
}

// DiscoverPaths resolves the default path layout relative to the current
// working directory and the user's home directory.
func DiscoverPaths() (*Paths, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	return &Paths{
		CurrentDir:   cwd,
		HomeDir:      home,
		CacheDir:     filepath.Join(home, ".pkgtree"),
		TreeDir:      filepath.Join(cwd, "node_modules"),
		LockfilePath: filepath.Join(cwd, "pkgtree.lock"),
	}, nil
}
