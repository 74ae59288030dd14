// Package cli implements the pkgtree command-line interface.
//
// Commands:
//   - install: download packages and install them into node_modules
//   - fetch: download package tarballs into the cache only
//   - compact: strip junk files from node_modules and pack it into one archive
//   - restore: unpack a packed tree back into node_modules
//   - cache: print or empty the tarball cache
//
// All commands support --verbose (-v) for debug-level logging. The logger
// and the resolved settings are passed through context.Context.
//
// Configuration is resolved per key from, in priority order: command-line
// flags, PKGTREE_* environment variables, git config (pkgtree.* keys), the
// YAML config file, and built-in defaults.
package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// version is overridable at build time via -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

type rootFlags struct {
	verbose    bool
	registry   string
	cacheDir   string
	treeDir    string
	configPath string
}

// Execute runs the pkgtree CLI. It returns an error if any command fails;
// cobra has already printed it by then, so callers only set the exit code.
func Execute(ctx context.Context) error {
	var flags rootFlags

	root := &cobra.Command{
		Use:          "pkgtree",
		Short:        "pkgtree downloads npm packages and maintains a compact node_modules tree",
		Long:         `pkgtree fetches npm package tarballs into a local cache, installs them into ./node_modules, strips files that serve no purpose in an installed tree, and packs the tree into a single archive for faster restores.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			if flags.verbose {
				level = charmlog.DebugLevel
			}

			settings, err := resolveSettings(&flags, execGitRunner{})
			if err != nil {
				return err
			}

			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			ctx = withSettings(ctx, settings)
			cmd.SetContext(ctx)
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&flags.registry, "registry", "", "registry base URL")
	root.PersistentFlags().StringVar(&flags.cacheDir, "cache-dir", "", "tarball cache directory")
	root.PersistentFlags().StringVar(&flags.treeDir, "tree-dir", "", "dependency tree directory")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file path")

	root.AddCommand(newInstallCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newCompactCmd())
	root.AddCommand(newRestoreCmd())
	root.AddCommand(newCacheCmd())

	return root.ExecuteContext(ctx)
}
