// Package payload embeds the baseline Ruby declarations every run starts from.
package payload

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"golang.org/x/sync/errgroup"

	"garnet/internal/source"
)

// Prefix is prepended to embedded paths so payload files never collide with
// user files.
const Prefix = "<payload>/"

//go:embed rbi/*.rbi
var embedded embed.FS

// File is one payload source.
type File struct {
	Path    string
	Content []byte
}

// Files returns the embedded payload sorted by path.
func Files() ([]File, error) {
	return Load(embedded, "rbi")
}

// Load reads every .rbi file under dir of fsys. Files are read concurrently
// and returned sorted by path.
func Load(fsys fs.FS, dir string) ([]File, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("payload: list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && path.Ext(e.Name()) == ".rbi" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]File, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			b, err := fs.ReadFile(fsys, path.Join(dir, name))
			if err != nil {
				return fmt.Errorf("payload: read %s: %w", name, err)
			}
			out[i] = File{Path: Prefix + name, Content: b}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Digest hashes names and contents of files. Order matters; Files already
// returns a stable order.
func Digest(files []File) source.Digest {
	h := sha256.New()
	for _, f := range files {
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		h.Write(f.Content)
		h.Write([]byte{0})
	}
	var d source.Digest
	copy(d[:], h.Sum(nil))
	return d
}
