package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/node-pkgs/pkgtree"
)

// Settings is the resolved CLI configuration.
type Settings struct {
	RegistryURL string
	CacheDir    string
	TreeDir     string
	Concurrency int
	Ignore      []string // extra removable patterns for compact
}

// Source supplies configuration values by key. Sources are consulted in
// priority order; the first hit wins.
type Source interface {
	Get(key string) (string, bool)
}

// chain consults sources front to back.
type chain []Source

func (c chain) Get(key string) (string, bool) {
	for _, s := range c {
		if v, ok := s.Get(key); ok {
			return v, true
		}
	}
	return "", false
}

// mapSource serves flag values and defaults.
type mapSource map[string]string

func (m mapSource) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// envSource maps "cache-dir" to "<prefix>CACHE_DIR" and reads the
// environment.
type envSource string

func (e envSource) Get(key string) (string, bool) {
	envKey := string(e) + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
	v := os.Getenv(envKey)
	return v, v != ""
}

// GitRunner executes a git subcommand and returns its trimmed stdout.
// Injected so config resolution never hard-depends on a git binary.
type GitRunner interface {
	Output(args ...string) (string, error)
}

type execGitRunner struct{}

func (execGitRunner) Output(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	return strings.TrimSpace(string(out)), err
}

// gitSource reads keys from git config, namespaced under "pkgtree.".
// Lookup failures (no git, no repo, unset key) are treated as misses.
type gitSource struct {
	runner GitRunner
}

func (g gitSource) Get(key string) (string, bool) {
	out, err := g.runner.Output("config", "--get", "pkgtree."+key)
	if err != nil || out == "" {
		return "", false
	}
	return out, true
}

// fileConfig is the YAML config file shape.
type fileConfig struct {
	Registry    string   `yaml:"registry"`
	CacheDir    string   `yaml:"cache_dir"`
	TreeDir     string   `yaml:"tree_dir"`
	Concurrency int      `yaml:"concurrency"`
	Ignore      []string `yaml:"ignore"`
}

// loadFileConfig reads the config file at path. A missing file is not an
// error and yields an empty config.
func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileConfig{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func (f *fileConfig) Get(key string) (string, bool) {
	switch key {
	case "registry":
		if f.Registry != "" {
			return f.Registry, true
		}
	case "cache-dir":
		if f.CacheDir != "" {
			return f.CacheDir, true
		}
	case "tree-dir":
		if f.TreeDir != "" {
			return f.TreeDir, true
		}
	case "concurrency":
		if f.Concurrency > 0 {
			return strconv.Itoa(f.Concurrency), true
		}
	}
	return "", false
}

// resolveSettings merges configuration sources. Flags beat environment beats
// git config beats the config file beats defaults.
func resolveSettings(flags *rootFlags, git GitRunner) (*Settings, error) {
	paths, err := DiscoverPaths()
	if err != nil {
		return nil, err
	}

	configPath := flags.configPath
	if configPath == "" {
		configPath = filepath.Join(paths.CacheDir, "config.yaml")
	}
	file, err := loadFileConfig(configPath)
	if err != nil {
		return nil, err
	}

	flagValues := mapSource{}
	if flags.registry != "" {
		flagValues["registry"] = flags.registry
	}
	if flags.cacheDir != "" {
		flagValues["cache-dir"] = flags.cacheDir
	}
	if flags.treeDir != "" {
		flagValues["tree-dir"] = flags.treeDir
	}

	defaults := mapSource{
		"registry":    pkgtree.DefaultRegistryURL,
		"cache-dir":   paths.CacheDir,
		"tree-dir":    paths.TreeDir,
		"concurrency": "15",
	}

	sources := chain{flagValues, envSource("PKGTREE_"), gitSource{runner: git}, file, defaults}
	return newSettings(sources, file.Ignore)
}

func newSettings(src Source, ignore []string) (*Settings, error) {
	s := &Settings{Ignore: ignore}
	s.RegistryURL, _ = src.Get("registry")
	s.CacheDir, _ = src.Get("cache-dir")
	s.TreeDir, _ = src.Get("tree-dir")

	raw, _ := src.Get("concurrency")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("invalid concurrency %q", raw)
	}
	s.Concurrency = n
	return s, nil
}

// withSettings returns a new context with the resolved settings attached.
func withSettings(ctx context.Context, s *Settings) context.Context {
	return context.WithValue(ctx, settingsKey, s)
}

// settingsFromContext retrieves the settings from ctx.
func settingsFromContext(ctx context.Context) *Settings {
	if s, ok := ctx.Value(settingsKey).(*Settings); ok {
		return s
	}
	return &Settings{}
}
