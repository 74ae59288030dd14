package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the tarball cache",
	}
	cmd.AddCommand(newCachePathCmd())
	cmd.AddCommand(newCacheCleanCmd())
	return cmd
}

func newCachePathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(settingsFromContext(cmd.Context()).CacheDir)
			return nil
		},
	}
}

func newCacheCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete every cached tarball",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			dir := settingsFromContext(cmd.Context()).CacheDir

			entries, err := os.ReadDir(dir)
			if errors.Is(err, fs.ErrNotExist) {
				logger.Info("cache is empty")
				return nil
			}
			if err != nil {
				return err
			}

			count := 0
			for _, entry := range entries {
				if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
					logger.Warnf("%s: %v", entry.Name(), err)
					continue
				}
				count++
			}
			logger.Infof("cleared %d cache entries", count)
			return nil
		},
	}
}
