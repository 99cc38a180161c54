package core

import (
	"fmt"

	"fortio.org/safecast"

	"garnet/internal/source"
)

// File is one registered source unit. Its fields are only written through a
// FileWriter; readers see it through FileView.Get.
type File struct {
	path     string
	content  []byte
	hash     source.Digest
	lineIdx  []uint32
	flags    source.FileFlags
	sigil    source.Sigil
	loaded   bool
	minLevel source.StrictLevel // минимальный уровень строгости среди ошибок файла
}

// Path returns the normalized path (or the virtual name, e.g. "-e").
func (f *File) Path() string { return f.path }

// Content returns the normalized source. Nil until the file is loaded.
func (f *File) Content() []byte { return f.content }

// Hash returns the sha256 of the normalized content.
func (f *File) Hash() source.Digest { return f.hash }

// Flags returns the file flags.
func (f *File) Flags() source.FileFlags { return f.flags }

// Loaded reports whether SetSource (or EnterVirtual) has run.
func (f *File) Loaded() bool { return f.loaded }

// Sigil returns the parsed `# typed:` comment.
func (f *File) Sigil() source.Sigil { return f.sigil }

// Strictness returns the effective strictness level of the file.
func (f *File) Strictness() source.StrictLevel { return f.sigil.Level.Effective() }

// IsPayload reports whether the file belongs to the baseline state.
func (f *File) IsPayload() bool { return f.flags&source.FilePayload != 0 }

// MinErrorLevel is the lowest strictness level of any diagnostic observed in
// the file. StrictMax when none was observed.
func (f *File) MinErrorLevel() source.StrictLevel { return f.minLevel }

// Position converts a byte offset into a 1-based line/column.
func (f *File) Position(off uint32) source.LineCol {
	return source.ToLineCol(f.lineIdx, off)
}

// Line returns the text of a 1-based line without its newline.
func (f *File) Line(line uint32) string {
	return source.LineText(f.content, f.lineIdx, line)
}

type fileTable struct {
	files  []*File // index 0 is nil for NoFileID
	byPath map[string]source.FileID
}

func newFileTable() *fileTable {
	return &fileTable{files: []*File{nil}, byPath: make(map[string]source.FileID)}
}

func (t *fileTable) get(id source.FileID) *File {
	if !id.IsValid() || int(id) >= len(t.files) {
		return nil
	}
	return t.files[id]
}

func (t *fileTable) add(f *File) source.FileID {
	n, err := safecast.Conv[uint32](len(t.files))
	if err != nil {
		panic(fmt.Errorf("file table overflow: %w", err))
	}
	id := source.FileID(n)
	t.files = append(t.files, f)
	t.byPath[f.path] = id
	return id
}

// FileView is a read-only handle to the file table.
type FileView struct{ t *fileTable }

// Get returns the file for id, nil when id is not registered.
func (v FileView) Get(id source.FileID) *File { return v.t.get(id) }

// ByPath returns the handle of path if it was registered.
func (v FileView) ByPath(path string) (source.FileID, bool) {
	id, ok := v.t.byPath[source.NormalizePath(path)]
	return id, ok
}

// Len counts registered files.
func (v FileView) Len() int { return len(v.t.files) - 1 }

// Refs lists every registered handle in ascending order.
func (v FileView) Refs() []source.FileID {
	out := make([]source.FileID, 0, v.Len())
	for i := 1; i < len(v.t.files); i++ {
		out = append(out, source.FileID(uint32(i))) //nolint:gosec // bounded by add
	}
	return out
}

// FileWriter is the freeze token of the file table.
type FileWriter struct {
	FileView
	tok *token
}

// UnfreezeFiles opens the exclusive mutation window of the file table.
func (gs *GlobalState) UnfreezeFiles() *FileWriter {
	return &FileWriter{FileView: gs.Files(), tok: gs.acquire(tableFiles)}
}

// Freeze closes the window.
func (w *FileWriter) Freeze() { w.tok.release() }

// Reserve returns a handle for path without loading it. Reserving the same
// path twice returns the first handle.
func (w *FileWriter) Reserve(path string, flags source.FileFlags) source.FileID {
	w.tok.check("reserve")
	path = source.NormalizePath(path)
	if id, ok := w.t.byPath[path]; ok {
		return id
	}
	if source.IsRBI(path) {
		flags |= source.FileRBI
	}
	return w.t.add(&File{path: path, flags: flags, minLevel: source.StrictMax})
}

// SetSource loads content into a reserved file: normalizes line endings,
// hashes, indexes lines and parses the strictness sigil.
func (w *FileWriter) SetSource(id source.FileID, content []byte) {
	w.tok.check("set source")
	f := w.t.get(id)
	if f == nil {
		panic(fmt.Sprintf("set source: invalid file %d", id))
	}
	f.load(content)
}

func (f *File) load(content []byte) {
	norm, nflags := source.Normalize(content)
	f.content = norm
	f.flags |= nflags
	f.hash = source.Hash(norm)
	f.lineIdx = source.LineIndex(norm)
	f.sigil = source.ParseSigil(norm)
	if f.flags&source.FilePayload != 0 && !f.sigil.Found {
		f.sigil = source.Sigil{Level: source.StrictStdlib, Found: true, Valid: true, Word: source.StrictStdlib.String()}
	}
	f.loaded = true
}

// EnterVirtual registers an in-memory file (e.g. `-e` input) in one step.
func (w *FileWriter) EnterVirtual(path string, content []byte) source.FileID {
	id := w.Reserve(path, source.FileVirtual)
	w.SetSource(id, content)
	return id
}

// ObserveErrorLevel lowers the minimum error level of the file.
func (w *FileWriter) ObserveErrorLevel(id source.FileID, lvl source.StrictLevel) {
	w.tok.check("observe error level")
	if f := w.t.get(id); f != nil && lvl < f.minLevel {
		f.minLevel = lvl
	}
}

// AssumeStrictness gives a file without a sigil the level lvl. Files that carry
// a sigil keep it.
func (w *FileWriter) AssumeStrictness(id source.FileID, lvl source.StrictLevel) {
	w.tok.check("assume strictness")
	if f := w.t.get(id); f != nil && !f.sigil.Found {
		f.sigil = source.Sigil{Level: lvl, Word: lvl.String()}
	}
}
