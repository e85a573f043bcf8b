package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vaultlint/internal/cache"
	"vaultlint/internal/config"
	"vaultlint/internal/logging"
)

var cacheConfigPath string

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheConfigPath, "config", "", "path to vaultlint.toml")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or remove the result cache",
}

func cacheDirFor(args []string) (string, error) {
	root, err := resolveVaultRoot(args)
	if err != nil {
		return "", err
	}
	cfg, err := config.Resolve(root, cacheConfigPath)
	if err != nil {
		return "", err
	}
	return cfg.AbsCacheDir(), nil
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats [path]",
	Short: "Show what the on-disk cache index holds",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := cacheDirFor(args)
		if err != nil {
			return err
		}
		c, err := cache.New(cache.Options{Dir: dir, Logger: logging.Discard()})
		if err != nil {
			return err
		}
		defer c.Close()

		st := c.Stats()
		fmt.Printf("cache directory: %s\n", dir)
		fmt.Printf("entries:         %d\n", st.Entries)
		fmt.Printf("memory:          %.1f KiB\n", float64(st.MemoryBytes)/1024)
		return nil
	},
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove the cache directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := cacheDirFor(args)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", dir)
		return nil
	},
}
