package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"garnet/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the payload cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show payload cache location and size",
	Args:  cobra.NoArgs,
	RunE:  runCacheInfo,
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every cached payload snapshot",
	Args:  cobra.NoArgs,
	RunE:  runCacheClean,
}

func init() {
	cacheCmd.PersistentFlags().String("cache-dir", "", "payload cache directory")
	cacheInfoCmd.Flags().String("cache-backend", "dir", "cache backend (dir|sqlite)")
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
}

func cacheDirFrom(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return "", fmt.Errorf("failed to get cache-dir flag: %w", err)
	}
	if dir != "" {
		return dir, nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if d := cfg.CacheDir(); d != "" {
		return d, nil
	}
	return cache.DefaultDir()
}

func runCacheInfo(cmd *cobra.Command, _ []string) error {
	dir, err := cacheDirFrom(cmd)
	if err != nil {
		return err
	}
	backendName, _ := cmd.Flags().GetString("cache-backend")
	backend, err := cache.ParseBackend(backendName)
	if err != nil {
		return err
	}
	if backend != cache.BackendDir && backend != cache.BackendSQLite {
		return fmt.Errorf("cache info: backend %q keeps nothing on disk", backend)
	}
	store, err := cache.Open(cache.Options{Backend: backend, Dir: dir})
	if err != nil {
		return fmt.Errorf("cache info: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dir:     %s\n", dir)
	fmt.Fprintf(out, "backend: %s\n", backend)
	insp, ok := store.(cache.Inspector)
	if !ok {
		return nil
	}
	stats, err := insp.Stats()
	if err != nil {
		return fmt.Errorf("cache info: %w", err)
	}
	fmt.Fprintf(out, "entries: %d\n", stats.Entries)
	fmt.Fprintf(out, "bytes:   %d\n", stats.Bytes)
	return nil
}

func runCacheClean(cmd *cobra.Command, _ []string) error {
	dir, err := cacheDirFrom(cmd)
	if err != nil {
		return err
	}
	if err := cache.DropAll(dir); err != nil {
		return fmt.Errorf("cache clean: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", dir)
	return nil
}
