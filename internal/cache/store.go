package cache

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store persists opaque blobs by Key. A failed or corrupt read is reported
// as an error together with ok=false; callers rebuild in that case.
type Store interface {
	Get(key Key) ([]byte, bool, error)
	Put(key Key, blob []byte) error
	Close() error
}

// Stats describes what a store holds, for `cache info`.
type Stats struct {
	Backend string
	Where   string
	Entries int
	Bytes   int64
}

// Inspector is implemented by stores that can report their contents.
type Inspector interface {
	Stats() (Stats, error)
}

// Backend selects a Store implementation.
type Backend string

const (
	BackendDir    Backend = "dir"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
	BackendNone   Backend = "none"
)

// Options configure Open.
type Options struct {
	Backend Backend
	Dir     string // пусто = DefaultDir()
}

// DefaultDir returns $XDG_CACHE_HOME/garnet or ~/.cache/garnet.
func DefaultDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "garnet"), nil
}

// Open creates the configured store. BackendNone yields a nil Store; callers
// skip caching in that case.
func Open(opts Options) (Store, error) {
	if opts.Backend == "" {
		opts.Backend = BackendDir
	}
	if opts.Backend == BackendNone {
		return nil, nil
	}
	if opts.Backend == BackendMemory {
		return NewMemoryStore(), nil
	}
	dir := opts.Dir
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("cache dir: %w", err)
		}
		dir = d
	}
	switch opts.Backend {
	case BackendDir:
		return OpenDirStore(dir)
	case BackendSQLite:
		return OpenSQLiteStore(filepath.Join(dir, "cache.db"))
	}
	return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
}

// ParseBackend validates a backend name from flags or config.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendDir, BackendSQLite, BackendMemory, BackendNone:
		return b, nil
	case "":
		return BackendDir, nil
	}
	return "", fmt.Errorf("unknown cache backend %q (want dir, sqlite, memory or none)", s)
}
