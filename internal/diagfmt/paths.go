package diagfmt

import (
	"path/filepath"
	"strings"

	"garnet/internal/core"
	"garnet/internal/payload"
	"garnet/internal/source"
)

// Files resolves file IDs of diagnostics; core.FileView implements it.
type Files interface {
	Get(id source.FileID) *core.File
}

// displayPath formats the path of f for output. Virtual and payload files
// keep their names in every mode.
func displayPath(f *core.File, mode PathMode, baseDir string) string {
	if f == nil {
		return "<unknown>"
	}
	p := f.Path()
	if f.Flags()&source.FileVirtual != 0 || strings.HasPrefix(p, payload.Prefix) {
		return p
	}
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
	case PathModeRelative:
		if baseDir != "" {
			abs, errA := filepath.Abs(p)
			base, errB := filepath.Abs(baseDir)
			if errA == nil && errB == nil {
				if rel, err := filepath.Rel(base, abs); err == nil && !strings.HasPrefix(rel, "..") {
					p = rel
				}
			}
		}
	case PathModeBasename:
		p = filepath.Base(p)
	case PathModeAuto:
	}
	return source.NormalizePath(p)
}

// position resolves span start to line/col; unknown files give 0:0.
func position(files Files, sp source.Span) (*core.File, source.LineCol) {
	if files == nil {
		return nil, source.LineCol{}
	}
	f := files.Get(sp.File)
	if f == nil || !f.Loaded() {
		return f, source.LineCol{}
	}
	return f, f.Position(sp.Start)
}
