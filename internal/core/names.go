package core

import (
	"fmt"
	"unicode/utf8"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// NameRef is an interned identifier. Two names are equal iff their refs are.
type NameRef uint32

// NoName is the reserved empty name.
const NoName NameRef = 0

// IsValid reports whether the ref names a non-empty identifier.
func (n NameRef) IsValid() bool { return n != NoName }

type nameTable struct {
	byID  []string           // byID[0] = "" для NoName
	index map[string]NameRef // строка -> ID
}

func newNameTable() *nameTable {
	return &nameTable{
		byID:  []string{""},
		index: map[string]NameRef{"": NoName},
	}
}

// canonical приводит идентификатор к NFC, чтобы визуально одинаковые имена совпадали.
func canonical(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return norm.NFC.String(s)
		}
	}
	return s
}

func (t *nameTable) intern(s string) NameRef {
	s = canonical(s)
	if id, ok := t.index[s]; ok {
		return id
	}
	// собственная копия, чтобы не держать исходный буфер файла
	cpy := string([]byte(s))
	n, err := safecast.Conv[uint32](len(t.byID))
	if err != nil {
		panic(fmt.Errorf("name table overflow: %w", err))
	}
	id := NameRef(n)
	t.byID = append(t.byID, cpy)
	t.index[cpy] = id
	return id
}

// NameView is a read-only handle to the name table. Safe for concurrent use
// while the table is frozen.
type NameView struct{ t *nameTable }

// Lookup returns the text of ref.
func (v NameView) Lookup(ref NameRef) (string, bool) {
	if int(ref) >= len(v.t.byID) {
		return "", false
	}
	return v.t.byID[ref], true
}

// Text returns the text of ref and panics on a dangling ref.
func (v NameView) Text(ref NameRef) string {
	s, ok := v.Lookup(ref)
	if !ok {
		panic(fmt.Sprintf("invalid name ref %d", ref))
	}
	return s
}

// Find returns the ref of s without interning it.
func (v NameView) Find(s string) (NameRef, bool) {
	id, ok := v.t.index[canonical(s)]
	return id, ok
}

// Len counts interned names, NoName included.
func (v NameView) Len() int { return len(v.t.byID) }

// NameWriter is the freeze token of the name table: the only way to intern.
type NameWriter struct {
	NameView
	tok *token
}

// UnfreezeNames opens the exclusive mutation window of the name table.
func (gs *GlobalState) UnfreezeNames() *NameWriter {
	return &NameWriter{NameView: NameView{gs.names}, tok: gs.acquire(tableNames)}
}

// Intern returns the canonical ref for s, adding it if needed.
func (w *NameWriter) Intern(s string) NameRef {
	w.tok.check("intern")
	return w.t.intern(s)
}

// Freeze closes the window; further Intern calls panic.
func (w *NameWriter) Freeze() { w.tok.release() }
