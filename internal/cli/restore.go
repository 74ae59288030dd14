package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/node-pkgs/pkgtree"
)

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore [pack-file]",
		Short: "Restore node_modules from a packed archive",
		Long: `Unpack a node_modules.pack archive into the dependency tree, replacing
the tree wholesale. Without an argument the archive is read from the
tree's parent directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			settings := settingsFromContext(ctx)

			packPath := filepath.Join(filepath.Dir(settings.TreeDir), pkgtree.DefaultPackName)
			if len(args) == 1 {
				packPath = args[0]
			}

			p := newProgress(logger)
			if err := pkgtree.Unpack(packPath, settings.TreeDir); err != nil {
				return err
			}
			p.done(fmt.Sprintf("Restored %s", settings.TreeDir))
			return nil
		},
	}
}
