package core

import (
	"sync/atomic"

	"garnet/internal/diag"
	"garnet/internal/source"
)

// RunFlags are per-run settings that affect diagnostic filtering. They are
// not part of a snapshot.
type RunFlags struct {
	Autogen             bool
	SilenceErrors       bool
	SuppressNonCritical bool
	Only                []diag.Code // пусто = все коды
	Suppress            []diag.Code
	MaxDiagnostics      int // 0 = без лимита
}

// GlobalState owns every global table of one run. Reads go through views and
// never lock; writes require the matching freeze token.
type GlobalState struct {
	names    *nameTable
	symbols  *symbolTable
	files    *fileTable
	errors   *ErrorQueue
	unfrozen [tableCount]atomic.Bool
	flags    RunFlags
}

// View bundles read-only handles to all tables.
type View struct {
	Names   NameView
	Symbols SymbolView
	Files   FileView
}

// New creates a GlobalState holding only the well-known symbols.
func New() *GlobalState {
	gs := &GlobalState{
		names:   newNameTable(),
		symbols: &symbolTable{data: []Symbol{{}}},
		files:   newFileTable(),
	}
	gs.errors = newErrorQueue(gs)
	gs.initWellKnown()
	return gs
}

// wellKnownSymbols lists the symbols every state starts with, in ref order.
// Порядок обязан совпадать с константами в symbols.go.
var wellKnownSymbols = []struct {
	ref   SymbolRef
	name  string
	kind  SymbolKind
	super SymbolRef
}{
	{Root, "<root>", KindModule, NoSymbol},
	{BasicObject, "BasicObject", KindClass, NoSymbol},
	{Object, "Object", KindClass, BasicObject},
	{Module, "Module", KindClass, Object},
	{Class, "Class", KindClass, Module},
	{Kernel, "Kernel", KindModule, NoSymbol},
	{StubModule, "<StubModule>", KindModule, NoSymbol},
}

func (gs *GlobalState) initWellKnown() {
	for _, w := range wellKnownSymbols {
		name := gs.names.intern(w.name)
		owner := Root
		if w.ref == Root {
			owner = NoSymbol
		}
		flags := FlagPayload
		if w.super.IsValid() {
			flags |= FlagSuperclassSet
		}
		ref := gs.symbols.alloc(Symbol{Name: name, Kind: w.kind, Owner: owner, Superclass: w.super, Flags: flags})
		if ref != w.ref {
			panic("well-known symbol table out of order")
		}
		if owner.IsValid() {
			root := gs.symbols.get(Root)
			if root.Members == nil {
				root.Members = make(map[NameRef]SymbolRef)
			}
			root.Members[name] = ref
		}
	}
	gs.symbols.get(Object).Mixins = []SymbolRef{Kernel}
	gs.symbols.get(BasicObject).Ancestors = []SymbolRef{BasicObject}
	gs.symbols.get(Kernel).Ancestors = []SymbolRef{Kernel}
	gs.symbols.get(Object).Ancestors = []SymbolRef{Object, Kernel, BasicObject}
	gs.symbols.get(Module).Ancestors = []SymbolRef{Module, Object, Kernel, BasicObject}
	gs.symbols.get(Class).Ancestors = []SymbolRef{Class, Module, Object, Kernel, BasicObject}
}

// Names returns a read-only view of the name table.
func (gs *GlobalState) Names() NameView { return NameView{gs.names} }

// Symbols returns a read-only view of the symbol table.
func (gs *GlobalState) Symbols() SymbolView {
	return SymbolView{t: gs.symbols, names: gs.Names()}
}

// Files returns a read-only view of the file table.
func (gs *GlobalState) Files() FileView { return FileView{gs.files} }

// View returns read-only handles to all tables.
func (gs *GlobalState) View() View {
	return View{Names: gs.Names(), Symbols: gs.Symbols(), Files: gs.Files()}
}

// Errors returns the diagnostic queue of the run.
func (gs *GlobalState) Errors() *ErrorQueue { return gs.errors }

// Flags returns the run flags.
func (gs *GlobalState) Flags() RunFlags { return gs.flags }

// SetFlags installs run flags. Call before any diagnostic is pushed.
func (gs *GlobalState) SetFlags(f RunFlags) {
	gs.flags = f
	gs.errors.configure(f)
}

// Strictness returns the effective level of file, StrictFalse for
// diagnostics that are not attached to a registered file.
func (v View) Strictness(file source.FileID) source.StrictLevel {
	if f := v.Files.Get(file); f != nil {
		return f.Strictness()
	}
	return source.StrictFalse
}
