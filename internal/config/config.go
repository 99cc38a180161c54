// Package config loads garnet.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"garnet/internal/cache"
	"garnet/internal/diag"
	"garnet/internal/dsl"
)

// FileName is the config file discovered upward from the working directory.
const FileName = "garnet.toml"

// ErrNotFound is returned by Discover when no garnet.toml exists up to the
// filesystem root.
var ErrNotFound = errors.New("no " + FileName + " found")

// Config is the decoded garnet.toml. Zero values mean "not set"; CLI flags
// override whatever is set here.
type Config struct {
	Check   Check       `toml:"check"`
	Files   Files       `toml:"files"`
	Autogen Autogen     `toml:"autogen"`
	DSL     []DSLPlugin `toml:"dsl"`

	// Path and Root are filled by Load.
	Path string `toml:"-"`
	Root string `toml:"-"`
	// Unknown lists keys that were present but not understood.
	Unknown []string `toml:"-"`
}

type Check struct {
	Threads        int      `toml:"threads"`
	CacheDir       string   `toml:"cache_dir"`
	CacheBackend   string   `toml:"cache_backend"`
	SkipDSL        bool     `toml:"skip_dsl"`
	OnlyCodes      []string `toml:"only_codes"`
	SuppressCodes  []string `toml:"suppress_codes"`
	SuggestTyped   bool     `toml:"suggest_typed"`
	MaxDiagnostics int      `toml:"max_diagnostics"`
}

type Files struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

type Autogen struct {
	SubclassesParents []string `toml:"subclasses_parents"`
	IgnoreAbsolute    []string `toml:"ignore_absolute"`
	IgnoreRelative    []string `toml:"ignore_relative"`
}

// DSLPlugin is one [[dsl]] table.
type DSLPlugin struct {
	Method string `toml:"method"`
	Script string `toml:"script"`
}

// Discover walks from startDir up to the root and returns the first
// garnet.toml it finds.
func Discover(startDir string) (string, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// Load decodes and validates the file at path.
func Load(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	cfg.Path = path
	cfg.Root = filepath.Dir(path)
	for _, key := range meta.Undecoded() {
		cfg.Unknown = append(cfg.Unknown, key.String())
	}
	if err := cfg.validate(meta); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadNearest discovers and loads the nearest config. A missing file is not
// an error: the result is then nil.
func LoadNearest(startDir string) (*Config, error) {
	path, err := Discover(startDir)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return Load(path)
}

func (c *Config) validate(meta toml.MetaData) error {
	if meta.IsDefined("check", "threads") && c.Check.Threads < 0 {
		return fmt.Errorf("[check].threads must not be negative")
	}
	if meta.IsDefined("check", "max_diagnostics") && c.Check.MaxDiagnostics < 0 {
		return fmt.Errorf("[check].max_diagnostics must not be negative")
	}
	if meta.IsDefined("check", "cache_backend") {
		if _, err := cache.ParseBackend(c.Check.CacheBackend); err != nil {
			return fmt.Errorf("[check].cache_backend: %w", err)
		}
	}
	for _, key := range []string{"only_codes", "suppress_codes"} {
		if !meta.IsDefined("check", key) {
			continue
		}
		list := c.Check.OnlyCodes
		if key == "suppress_codes" {
			list = c.Check.SuppressCodes
		}
		if _, err := ParseCodes(list); err != nil {
			return fmt.Errorf("[check].%s: %w", key, err)
		}
	}
	seen := make(map[string]bool, len(c.DSL))
	for i, p := range c.DSL {
		if strings.TrimSpace(p.Method) == "" {
			return fmt.Errorf("[[dsl]] #%d: missing method", i+1)
		}
		if strings.TrimSpace(p.Script) == "" {
			return fmt.Errorf("[[dsl]] %s: missing script", p.Method)
		}
		if seen[p.Method] {
			return fmt.Errorf("[[dsl]] %s: declared twice", p.Method)
		}
		seen[p.Method] = true
	}
	return nil
}

// ParseCodes converts code IDs or numbers ("INF7001", "7001") to codes.
func ParseCodes(list []string) ([]diag.Code, error) {
	out := make([]diag.Code, 0, len(list))
	for _, s := range list {
		code, err := diag.ParseCode(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out, nil
}

// PluginSpecs converts [[dsl]] tables for dsl.New; scripts resolve against
// Root.
func (c *Config) PluginSpecs() []dsl.PluginSpec {
	if c == nil {
		return nil
	}
	specs := make([]dsl.PluginSpec, 0, len(c.DSL))
	for _, p := range c.DSL {
		specs = append(specs, dsl.PluginSpec{Method: p.Method, Script: p.Script})
	}
	return specs
}

// CacheDir resolves [check].cache_dir against Root.
func (c *Config) CacheDir() string {
	if c == nil || c.Check.CacheDir == "" {
		return ""
	}
	if filepath.IsAbs(c.Check.CacheDir) {
		return c.Check.CacheDir
	}
	return filepath.Join(c.Root, c.Check.CacheDir)
}
