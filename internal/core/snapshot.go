package core

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"garnet/internal/source"
)

// snapshotSchema must be bumped whenever the encoded layout changes; older
// snapshots then fail to decode and caches rebuild.
const snapshotSchema uint16 = 1

// ErrSnapshotSchema is returned by Decode for snapshots of another layout.
var ErrSnapshotSchema = errors.New("snapshot schema mismatch")

type snapshot struct {
	Schema  uint16         `msgpack:"schema"`
	Names   []string       `msgpack:"names"`
	Symbols []Symbol       `msgpack:"symbols"`
	Files   []snapshotFile `msgpack:"files"`
}

type snapshotFile struct {
	Path     string             `msgpack:"path"`
	Content  []byte             `msgpack:"content"`
	Flags    source.FileFlags   `msgpack:"flags"`
	Loaded   bool               `msgpack:"loaded"`
	MinLevel source.StrictLevel `msgpack:"min_level"`
}

// Encode serializes names, symbols and files of gs. Map keys are sorted so
// equal states produce identical bytes. All tables must be frozen.
func Encode(gs *GlobalState) ([]byte, error) {
	for t := range tableCount {
		if !gs.frozen(t) {
			panic(&Violation{Table: t.String(), Op: "encode", Msg: "table is unfrozen"})
		}
	}
	snap := snapshot{
		Schema:  snapshotSchema,
		Names:   gs.names.byID,
		Symbols: gs.symbols.data,
		Files:   make([]snapshotFile, 0, len(gs.files.files)-1),
	}
	for _, f := range gs.files.files[1:] {
		snap.Files = append(snap.Files, snapshotFile{
			Path:     f.path,
			Content:  f.content,
			Flags:    f.flags,
			Loaded:   f.loaded,
			MinLevel: f.minLevel,
		})
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// checkWellKnown verifies that refs below firstFreeSymbol hold the symbols a
// fresh state allocates there, by name and kind.
func checkWellKnown(names []string, syms []Symbol) error {
	if len(syms) < int(firstFreeSymbol) {
		return fmt.Errorf("%d symbols, well-known symbols missing", len(syms))
	}
	for _, w := range wellKnownSymbols {
		sym := syms[w.ref]
		if int(sym.Name) >= len(names) {
			return fmt.Errorf("well-known symbol %d has name ref %d out of range", w.ref, sym.Name)
		}
		if got := names[sym.Name]; got != w.name || sym.Kind != w.kind {
			return fmt.Errorf("symbol %d is %s %q, want %s %q", w.ref, sym.Kind, got, w.kind, w.name)
		}
	}
	return nil
}

// Decode rebuilds a GlobalState from Encode output. File handles, name refs
// and symbol refs keep their values.
func Decode(data []byte) (*GlobalState, error) {
	var snap snapshot
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Schema != snapshotSchema {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSnapshotSchema, snap.Schema, snapshotSchema)
	}
	if len(snap.Names) == 0 || snap.Names[0] != "" {
		return nil, errors.New("decode snapshot: name table lacks the empty name")
	}
	if err := checkWellKnown(snap.Names, snap.Symbols); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	gs := &GlobalState{
		names:   &nameTable{byID: snap.Names, index: make(map[string]NameRef, len(snap.Names))},
		symbols: &symbolTable{data: snap.Symbols},
		files:   newFileTable(),
	}
	gs.errors = newErrorQueue(gs)
	for i, s := range snap.Names {
		gs.names.index[s] = NameRef(uint32(i)) //nolint:gosec // len checked by the encoder's arena
	}
	for _, sf := range snap.Files {
		f := &File{path: sf.Path, flags: sf.Flags, minLevel: sf.MinLevel}
		if sf.Loaded {
			f.load(sf.Content)
		}
		gs.files.add(f)
	}
	return gs, nil
}
