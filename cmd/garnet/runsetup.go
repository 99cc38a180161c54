package main

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"garnet/internal/cache"
	"garnet/internal/config"
	"garnet/internal/driver"
	"garnet/internal/dsl"
	"garnet/internal/frontend/rubyts"
	"garnet/internal/version"
)

// addRunFlags registers the flags shared by check and autogen.
func addRunFlags(fs *pflag.FlagSet) {
	fs.IntP("threads", "j", 0, "worker threads (0 = number of CPUs)")
	fs.String("cache-dir", "", "payload cache directory")
	fs.String("cache-backend", "dir", "payload cache backend (dir|sqlite|memory|none)")
	fs.Bool("skip-dsl", false, "disable DSL passes (attr_* and [[dsl]] plugins)")
	fs.StringSlice("exclude", nil, "skip directories or files matching these patterns")
	fs.String("store-state", "", "write the final global state snapshot to file")
}

// loadConfig reads --config or the nearest garnet.toml; nil when absent.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg *config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadNearest(".")
	}
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		activeLog.Debug("config loaded", "path", cfg.Path)
		for _, key := range cfg.Unknown {
			activeLog.Warn("unknown config key ignored", "key", key, "file", cfg.Path)
		}
	}
	return cfg, nil
}

// engineVersion keys the payload cache; a new build never reuses snapshots
// of another.
func engineVersion() string {
	if version.GitCommit != "" {
		return version.Version + "+" + version.GitCommit
	}
	return version.Version
}

// resolveThreads: флаг важнее конфига, 0 (или меньше) = все CPU,
// 1 оставляет последовательный режим для отладки.
func resolveThreads(fs *pflag.FlagSet, check config.Check) int {
	n := check.Threads
	if fs.Changed("threads") {
		n, _ = fs.GetInt("threads")
	}
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// buildRunOptions fills driver.Options from config and flags (flags win when
// set) and returns a cleanup closing the cache store.
func buildRunOptions(cmd *cobra.Command, args []string, cfg *config.Config) (driver.Options, func(), error) {
	fs := cmd.Flags()
	noop := func() {}
	opts := driver.Options{
		Parser:        rubyts.New(),
		EngineVersion: engineVersion(),
		Log:           activeLog,
	}
	var check config.Check
	var files config.Files
	if cfg != nil {
		check, files = cfg.Check, cfg.Files
	}

	opts.Threads = resolveThreads(fs, check)
	opts.SkipDSL = check.SkipDSL
	if fs.Changed("skip-dsl") {
		opts.SkipDSL, _ = fs.GetBool("skip-dsl")
	}
	opts.StoreState, _ = fs.GetString("store-state")

	if f := fs.Lookup("e"); f != nil && f.Changed {
		opts.Inline, _ = fs.GetString("e")
		opts.HasInline = true
	}

	paths := args
	baseDir := "."
	if cfg != nil {
		baseDir = cfg.Root
	}
	if len(paths) == 0 && !opts.HasInline {
		paths = files.Include
		if cfg != nil {
			paths = make([]string, 0, len(files.Include))
			for _, p := range files.Include {
				paths = append(paths, filepath.Join(cfg.Root, p))
			}
		}
		if len(paths) == 0 {
			paths = []string{"."}
		}
	}
	exclude := files.Exclude
	if fs.Changed("exclude") {
		exclude, _ = fs.GetStringSlice("exclude")
	}
	inputs, err := inputSet{baseDir: baseDir, exclude: exclude}.collect(paths)
	if err != nil {
		return opts, noop, err
	}
	opts.Paths = inputs

	if !opts.SkipDSL {
		var specs []dsl.PluginSpec
		root := "."
		if cfg != nil {
			specs, root = cfg.PluginSpecs(), cfg.Root
		}
		rw, err := dsl.New(specs, root)
		if err != nil {
			return opts, noop, fmt.Errorf("dsl plugins: %w", err)
		}
		opts.DSL = rw
	}

	store, err := openStore(fs, cfg, check)
	if err != nil {
		// без кеша проверка всё равно возможна
		activeLog.Warn("payload cache disabled", "error", err)
		store = nil
	}
	opts.Store = store
	cleanup := func() {
		if store == nil {
			return
		}
		if err := store.Close(); err != nil {
			activeLog.Warn("closing cache failed", "error", err)
		}
	}
	return opts, cleanup, nil
}

func openStore(fs *pflag.FlagSet, cfg *config.Config, check config.Check) (cache.Store, error) {
	backendName := check.CacheBackend
	if fs.Changed("cache-backend") || backendName == "" {
		backendName, _ = fs.GetString("cache-backend")
	}
	backend, err := cache.ParseBackend(backendName)
	if err != nil {
		return nil, err
	}
	dir := cfg.CacheDir()
	if fs.Changed("cache-dir") {
		dir, _ = fs.GetString("cache-dir")
	}
	return cache.Open(cache.Options{Backend: backend, Dir: dir})
}

// errExit is returned when a run finished but must end with a non-zero code.
func errExit(code int) error {
	if code == driver.ExitOK {
		return nil
	}
	return &exitError{code: code}
}
