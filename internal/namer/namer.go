// Package namer enters class, module, method and constant definitions into
// the symbol table. It runs single-threaded on the driver goroutine while the
// name and symbol tables are unfrozen.
package namer

import (
	"garnet/internal/ast"
	"garnet/internal/core"
	"garnet/internal/diag"
	"garnet/internal/source"
)

// Namer holds the writers for the duration of the name phase.
type Namer struct {
	names *core.NameWriter
	syms  *core.SymbolWriter
}

// New creates a Namer over live writers. The caller freezes them.
func New(names *core.NameWriter, syms *core.SymbolWriter) *Namer {
	return &Namer{names: names, syms: syms}
}

type scope struct {
	owner    core.SymbolRef // лексический владелец
	inMethod bool
}

type fileNamer struct {
	*Namer
	payload bool
	diags   []diag.Diagnostic
}

// File names every definition of f and annotates the tree with symbols.
// Payload files mark their symbols with FlagPayload.
func (n *Namer) File(f *ast.File, payload bool) []diag.Diagnostic {
	fn := &fileNamer{Namer: n, payload: payload}
	fn.body(f.Nodes, scope{owner: core.Root})
	return fn.diags
}

func (fn *fileNamer) report(d diag.Diagnostic) { fn.diags = append(fn.diags, d) }

func (fn *fileNamer) body(nodes []ast.Node, sc scope) {
	for _, node := range nodes {
		switch n := node.(type) {
		case *ast.ClassDef:
			fn.classDef(n, sc)
		case *ast.MethodDef:
			fn.methodDef(n, sc)
		case *ast.ConstAssign:
			fn.constAssign(n, sc)
		case *ast.Send:
			fn.body(n.Block, sc)
		}
	}
}

func (fn *fileNamer) mark(ref core.SymbolRef) {
	if fn.payload {
		fn.syms.SetFlags(ref, core.FlagPayload)
	}
}

// scopeFor walks the leading segments of path, entering placeholder modules
// for the ones that do not exist yet, and returns the owner of the last one.
func (fn *fileNamer) scopeFor(path *ast.ConstPath, sc scope) core.SymbolRef {
	owner := sc.owner
	if path.Absolute {
		owner = core.Root
	}
	for _, seg := range path.Segments[:len(path.Segments)-1] {
		ref, existed := fn.syms.EnterModule(owner, fn.names.Intern(seg), source.Span{})
		if !existed {
			fn.mark(ref)
			fn.syms.SetFlags(ref, core.FlagPlaceholder)
		}
		owner = ref
	}
	return owner
}

func (fn *fileNamer) classDef(n *ast.ClassDef, sc scope) {
	if n.Kind == ast.ScopeSingleton {
		owner := sc.owner
		if owner == core.Root {
			owner = core.Object
		}
		single := fn.syms.SingletonClass(owner)
		n.Symbol = single
		fn.body(n.Body, scope{owner: single})
		return
	}
	if len(n.Name.Segments) == 0 {
		fn.report(diag.NewError(diag.ParseEmptyConstant, n.Span, "class or module without a name"))
		return
	}

	kind := core.KindClass
	if n.Kind == ast.ScopeModule {
		kind = core.KindModule
	}
	owner := fn.scopeFor(&n.Name, sc)
	name := fn.names.Intern(n.Name.Last())
	ref, existed := fn.syms.EnterScope(owner, name, kind, n.Name.Span)
	n.Symbol = ref
	n.Name.Symbol = ref
	prev := fn.syms.Get(ref)
	switch {
	case !existed:
		fn.mark(ref)
	case prev.Flags&core.FlagPlaceholder != 0:
		// заглушка из `class A::B` стала настоящим определением
		fn.syms.ClearFlags(ref, core.FlagPlaceholder)
		fn.syms.SetKind(ref, kind)
	case prev.Kind != kind:
		fn.report(diag.Errorf(diag.NameModuleKindRedefinition, n.Name.Span,
			"`%s` was previously defined as a %s", fn.syms.FullName(ref), prev.Kind).
			WithNote(prev.Loc(), "previous definition"))
		if !prev.Kind.IsScope() {
			return
		}
	}
	fn.body(n.Body, scope{owner: ref})
}

func (fn *fileNamer) methodDef(n *ast.MethodDef, sc scope) {
	owner := sc.owner
	if owner == core.Root {
		// методы верхнего уровня принадлежат Object
		owner = core.Object
	}
	if n.Self {
		owner = fn.syms.SingletonClass(owner)
	}
	arity := n.Params.Arity()
	ref, existed, prev := fn.syms.EnterMethod(owner, fn.names.Intern(n.Name), arity, n.NameSpan)
	n.Symbol = ref
	if n.Synthesized {
		fn.syms.SetFlags(ref, core.FlagSynthesized)
	}
	if !existed {
		fn.mark(ref)
	} else if prev != arity {
		sym := fn.syms.Get(ref)
		fn.report(diag.Errorf(diag.NameRedefinitionOfMethod, n.NameSpan,
			"Method `%s` redefined with arity %s (previously %s)", fn.syms.FullName(ref), arity, prev).
			WithNote(sym.Loc(), "previous definition"))
	}
	fn.body(n.Body, scope{owner: sc.owner, inMethod: true})
}

func (fn *fileNamer) constAssign(n *ast.ConstAssign, sc scope) {
	defer fn.body(n.Value, sc)
	if sc.inMethod {
		fn.report(diag.Errorf(diag.NameDynamicConstantScope, n.Span,
			"Dynamic constant assignment to `%s`", n.Name.String()))
		return
	}
	if len(n.Name.Segments) == 0 {
		fn.report(diag.NewError(diag.ParseEmptyConstant, n.Span, "constant assignment without a name"))
		return
	}
	owner := fn.scopeFor(&n.Name, sc)
	ref, existed := fn.syms.EnterConstant(owner, fn.names.Intern(n.Name.Last()), n.Name.Span)
	n.Symbol = ref
	n.Name.Symbol = ref
	if !existed {
		fn.mark(ref)
		return
	}
	prev := fn.syms.Get(ref)
	fn.report(diag.Errorf(diag.NameConstantReassignment, n.Name.Span,
		"Constant `%s` is already defined as a %s", fn.syms.FullName(ref), prev.Kind).
		WithNote(prev.Loc(), "previous definition"))
}
