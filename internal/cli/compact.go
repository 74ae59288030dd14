package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/node-pkgs/pkgtree"
)

func newCompactCmd() *cobra.Command {
	var keep []string

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Strip junk files from node_modules and pack it into one archive",
		Long: `Delete files and directories matching the removables list from every
installed package, then pack the tree into a single node_modules.pack
archive next to it. Filter failures are reported but do not block the
pack step; a pack failure fails the command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(cmd.Context(), keep)
		},
	}
	cmd.Flags().StringArrayVar(&keep, "keep", nil, "remove a pattern from the removables set (repeatable)")
	return cmd
}

func runCompact(ctx context.Context, keep []string) error {
	logger := loggerFromContext(ctx)
	settings := settingsFromContext(ctx)

	patterns := append(pkgtree.DefaultPatterns(), settings.Ignore...)
	patterns = applyKeep(patterns, keep)
	set, err := pkgtree.CompilePatterns(patterns)
	if err != nil {
		return err
	}

	p := newProgress(logger)
	report, err := pkgtree.NewFilter(set).Clean(settings.TreeDir)
	if err != nil {
		return fmt.Errorf("filtering %s: %w", settings.TreeDir, err)
	}
	for _, fail := range report.Failures {
		logger.Warnf("%s: %v", fail.Path, fail.Err)
	}
	logger.Infof("removed %d entries", report.Removed)

	packPath := filepath.Join(filepath.Dir(settings.TreeDir), pkgtree.DefaultPackName)
	if err := pkgtree.Pack(settings.TreeDir, packPath); err != nil {
		return fmt.Errorf("packing %s: %w", settings.TreeDir, err)
	}
	p.done(fmt.Sprintf("Packed tree into %s", packPath))
	return nil
}

// applyKeep drops every pattern named by keep from the removables list.
// Comparison is case-insensitive, like pattern matching itself.
func applyKeep(patterns, keep []string) []string {
	if len(keep) == 0 {
		return patterns
	}
	drop := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		drop[strings.ToLower(k)] = struct{}{}
	}
	kept := make([]string, 0, len(patterns))
	for _, pat := range patterns {
		if _, ok := drop[strings.ToLower(pat)]; ok {
			continue
		}
		kept = append(kept, pat)
	}
	return kept
}
