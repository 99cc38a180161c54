package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Template is written by `garnet init`.
const Template = `# garnet configuration. Command line flags override these values.

[check]
# threads = 0            # 0 = number of CPUs
# cache_backend = "dir"  # dir, sqlite, memory or none
# cache_dir = ".garnet-cache"
# skip_dsl = false
# only_codes = []        # e.g. ["INF7001"]
# suppress_codes = []
# suggest_typed = false
# max_diagnostics = 0    # 0 = unlimited

[files]
include = ["."]
exclude = ["vendor", "node_modules", "tmp"]

[autogen]
# subclasses_parents = ["ApplicationRecord"]
# ignore_absolute = ["/db/"]
# ignore_relative = ["spec"]

# [[dsl]]
# method = "has_many"
# script = "dsl/has_many.risor"
`

// ErrExists is returned by WriteTemplate when the target already exists.
var ErrExists = errors.New(FileName + " already exists")

// WriteTemplate creates dir/garnet.toml unless it exists and force is off.
func WriteTemplate(dir string, force bool) (string, error) {
	path := filepath.Join(dir, FileName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, ErrExists
		} else if !errors.Is(err, os.ErrNotExist) {
			return path, fmt.Errorf("stat %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, []byte(Template), 0o644); err != nil { //nolint:gosec // config is meant to be readable
		return path, fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
