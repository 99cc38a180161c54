// Package resolver binds constant references to symbols, records superclasses
// and mixins, and linearizes every class hierarchy. It runs single-threaded
// on the driver goroutine with the symbol table unfrozen.
package resolver

import (
	"slices"
	"strings"

	"garnet/internal/ast"
	"garnet/internal/core"
	"garnet/internal/diag"
	"garnet/internal/graph"
	"garnet/internal/source"
)

// Mode selects how much of each file is resolved.
type Mode uint8

const (
	// ModeFull binds every constant, including those inside method bodies.
	ModeFull Mode = iota
	// ModeConstants binds only definition-level constants (superclasses,
	// mixins, constant values); method bodies are left alone. Used by autogen.
	ModeConstants
)

type itemKind uint8

const (
	itemRef itemKind = iota
	itemSuper
	itemMixin
)

// item is one constant path waiting for resolution.
type item struct {
	kind    itemKind
	path    *ast.ConstPath
	nesting []core.SymbolRef // лексические области, самая внутренняя первой
	owner   core.SymbolRef   // класс для itemSuper / itemMixin
	mixin   ast.MixinKind
}

type resolver struct {
	names core.NameView
	syms  *core.SymbolWriter
	diags []diag.Diagnostic
}

// Run resolves files against the symbol table. Symbols from earlier runs (the
// baseline) take part in lookup and linearization.
func Run(names core.NameView, syms *core.SymbolWriter, files []*ast.File, mode Mode) []diag.Diagnostic {
	r := &resolver{names: names, syms: syms}
	var items []*item
	for _, f := range files {
		if f == nil {
			continue
		}
		// на верхнем уровне self это Object
		items = r.collect(items, f.Nodes, walkCtx{self: core.Object}, mode)
	}
	r.fixpoint(items)
	r.defaultSuperclasses()
	r.linearize()
	return r.diags
}

func (r *resolver) report(d diag.Diagnostic) { r.diags = append(r.diags, d) }

// walkCtx is the position of collect inside a file.
type walkCtx struct {
	nesting  []core.SymbolRef // лексические области, самая внутренняя первой
	self     core.SymbolRef   // класс, в теле которого мы находимся
	extend   bool             // внутри class << self: include работает как extend
	inMethod bool
}

// collect gathers constant paths in source order.
func (r *resolver) collect(items []*item, nodes []ast.Node, c walkCtx, mode Mode) []*item {
	for _, node := range nodes {
		switch n := node.(type) {
		case *ast.ClassDef:
			if !n.Symbol.IsValid() {
				items = r.collect(items, n.Body, c, mode)
				continue
			}
			inner := c
			inner.inMethod = false
			if n.Kind == ast.ScopeSingleton {
				inner.self = r.syms.Get(n.Symbol).Attached
				inner.extend = true
			} else {
				inner.nesting = append([]core.SymbolRef{n.Symbol}, c.nesting...)
				inner.self = n.Symbol
				inner.extend = false
				if n.Superclass != nil && r.syms.Kind(n.Symbol) == core.KindClass {
					// суперкласс ищется во внешней области
					items = append(items, &item{kind: itemSuper, path: n.Superclass, nesting: c.nesting, owner: n.Symbol})
				}
			}
			items = r.collect(items, n.Body, inner, mode)
		case *ast.Mixin:
			it := &item{kind: itemMixin, path: &n.Target, nesting: c.nesting, owner: c.self, mixin: n.Kind}
			if c.extend {
				it.mixin = ast.MixinExtend
			}
			items = append(items, it)
		case *ast.MethodDef:
			if mode == ModeFull {
				inner := c
				inner.inMethod = true
				items = r.collect(items, n.Body, inner, mode)
			}
		case *ast.ConstAssign:
			items = r.collect(items, n.Value, c, mode)
		case *ast.ConstRef:
			items = append(items, &item{kind: itemRef, path: &n.Path, nesting: c.nesting})
		case *ast.Send:
			if n.Receiver != nil && (mode == ModeFull || !c.inMethod) {
				items = append(items, &item{kind: itemRef, path: n.Receiver, nesting: c.nesting})
			}
			items = r.collect(items, n.Block, c, mode)
		}
	}
	return items
}

// fixpoint resolves items until no pass makes progress: a superclass bound
// in one pass can make inherited constants visible in the next.
func (r *resolver) fixpoint(items []*item) {
	pending := items
	for len(pending) > 0 {
		next := pending[:0:0]
		for _, it := range pending {
			if ref, ok := r.lookup(it.path, it.nesting); ok {
				r.apply(it, ref)
				continue
			}
			next = append(next, it)
		}
		if len(next) == len(pending) {
			break
		}
		pending = next
	}
	for _, it := range pending {
		r.report(diag.Errorf(diag.ResolveStubConstant, it.path.Span,
			"Unable to resolve constant `%s`", it.path.String()))
		it.path.Symbol = core.StubModule
	}
}

func (r *resolver) apply(it *item, ref core.SymbolRef) {
	it.path.Symbol = ref
	switch it.kind {
	case itemSuper:
		r.applySuper(it, ref)
	case itemMixin:
		r.applyMixin(it, ref)
	}
}

func (r *resolver) applySuper(it *item, super core.SymbolRef) {
	if r.syms.Kind(super) != core.KindClass {
		r.report(diag.Errorf(diag.ResolveSuperclassNotClass, it.path.Span,
			"Superclass `%s` of `%s` is a %s, not a class",
			r.syms.FullName(super), r.syms.FullName(it.owner), r.syms.Kind(super)))
		return
	}
	cls := r.syms.Get(it.owner)
	if cls.Flags&core.FlagSuperclassSet != 0 && cls.Superclass != super {
		r.report(diag.Errorf(diag.ResolveRedefinitionOfParents, it.path.Span,
			"Parent of class `%s` redefined from `%s` to `%s`",
			r.syms.FullName(it.owner), r.syms.FullName(cls.Superclass), r.syms.FullName(super)).
			WithNote(cls.Loc(), "first definition"))
		return
	}
	r.syms.SetSuperclass(it.owner, super)
}

func (r *resolver) applyMixin(it *item, target core.SymbolRef) {
	if r.syms.Kind(target) != core.KindModule {
		r.report(diag.Errorf(diag.ResolveMixinNotModule, it.path.Span,
			"`%s %s`: only modules can be mixed in, `%s` is a %s",
			it.mixin, it.path.String(), r.syms.FullName(target), r.syms.Kind(target)))
		return
	}
	if it.mixin == ast.MixinExtend {
		r.syms.AddExtend(it.owner, target)
		return
	}
	r.syms.AddMixin(it.owner, target)
}

// lookup resolves path: lexical scopes innermost first, then the ancestors of
// the innermost scope, then the root. Later segments are members of the
// previous one or of its ancestors.
func (r *resolver) lookup(path *ast.ConstPath, nesting []core.SymbolRef) (core.SymbolRef, bool) {
	if len(path.Segments) == 0 {
		return core.NoSymbol, false
	}
	first, ok := r.names.Find(path.Segments[0])
	if !ok {
		return core.NoSymbol, false
	}
	var cur core.SymbolRef
	switch {
	case path.Absolute:
		cur, ok = r.syms.Member(core.Root, first)
	default:
		cur, ok = r.lexical(first, nesting)
	}
	if !ok {
		return core.NoSymbol, false
	}
	for _, seg := range path.Segments[1:] {
		name, found := r.names.Find(seg)
		if !found {
			return core.NoSymbol, false
		}
		if cur, ok = r.inherited(cur, name); !ok {
			return core.NoSymbol, false
		}
	}
	return cur, true
}

func (r *resolver) lexical(name core.NameRef, nesting []core.SymbolRef) (core.SymbolRef, bool) {
	for _, scope := range nesting {
		if ref, ok := r.syms.Member(scope, name); ok {
			return ref, true
		}
	}
	if len(nesting) > 0 {
		if ref, ok := r.inherited(nesting[0], name); ok {
			return ref, true
		}
	}
	if ref, ok := r.syms.Member(core.Root, name); ok {
		return ref, true
	}
	return r.inherited(core.Object, name)
}

// inherited looks name up in scope, its mixins and its superclass chain as
// declared so far. Cycles in the declarations are cut by the visited set.
func (r *resolver) inherited(scope core.SymbolRef, name core.NameRef) (core.SymbolRef, bool) {
	seen := make(map[core.SymbolRef]bool)
	var walk func(s core.SymbolRef) (core.SymbolRef, bool)
	walk = func(s core.SymbolRef) (core.SymbolRef, bool) {
		if !s.IsValid() || seen[s] {
			return core.NoSymbol, false
		}
		seen[s] = true
		if ref, ok := r.syms.Member(s, name); ok && r.syms.Kind(ref) != core.KindMethod {
			return ref, true
		}
		sym := r.syms.Get(s)
		for i := len(sym.Mixins) - 1; i >= 0; i-- {
			if ref, ok := walk(sym.Mixins[i]); ok {
				return ref, true
			}
		}
		return walk(sym.Superclass)
	}
	return walk(scope)
}

// defaultSuperclasses gives every class without a declared parent Object.
func (r *resolver) defaultSuperclasses() {
	for i := 1; i <= r.syms.Len(); i++ {
		ref := core.SymbolRef(uint32(i)) //nolint:gosec // bounded by Len
		sym := r.syms.Get(ref)
		if sym.Kind != core.KindClass || sym.Flags&core.FlagSingleton != 0 || ref == core.BasicObject {
			continue
		}
		r.syms.DefaultSuperclass(ref, core.Object)
	}
}

// linearize computes ancestors parents-first. Cycles are reported once per
// class on the cycle and broken by resetting parents.
func (r *resolver) linearize() {
	g, topo := r.hierarchy()
	for topo.Cyclic {
		cyclic := graph.InCycle(g, topo.Cycles)
		if len(cyclic) == 0 {
			break
		}
		r.breakCycle(cyclic)
		g, topo = r.hierarchy()
	}

	ancestors := make(map[core.SymbolRef][]core.SymbolRef, len(topo.Order))
	for _, id := range topo.Order {
		ref := core.SymbolRef(id)
		sym := r.syms.Get(ref)
		chain := []core.SymbolRef{ref}
		for i := len(sym.Mixins) - 1; i >= 0; i-- {
			chain = append(chain, ancestors[sym.Mixins[i]]...)
		}
		if sym.Superclass.IsValid() {
			chain = append(chain, ancestors[sym.Superclass]...)
		}
		chain = dedupKeepLast(chain)
		ancestors[ref] = chain
		r.syms.SetAncestors(ref, chain)
	}
}

func (r *resolver) hierarchy() (*graph.Graph, *graph.Topo) {
	n := r.syms.Len() + 1
	g := graph.New(n)
	for i := 1; i < n; i++ {
		ref := core.SymbolRef(uint32(i)) //nolint:gosec // bounded by Len
		sym := r.syms.Get(ref)
		if !sym.Kind.IsScope() || sym.Flags&core.FlagSingleton != 0 {
			continue
		}
		g.AddNode(graph.NodeID(ref))
		if sym.Superclass.IsValid() {
			g.AddEdge(graph.NodeID(sym.Superclass), graph.NodeID(ref))
		}
		for _, m := range sym.Mixins {
			g.AddEdge(graph.NodeID(m), graph.NodeID(ref))
		}
	}
	return g, graph.ToposortKahn(g)
}

func (r *resolver) breakCycle(cyclic []graph.NodeID) {
	refs := make([]core.SymbolRef, 0, len(cyclic))
	names := make([]string, 0, len(cyclic))
	for _, id := range cyclic {
		refs = append(refs, core.SymbolRef(id))
		names = append(names, r.syms.FullName(core.SymbolRef(id)))
	}
	summary := strings.Join(names, " -> ")
	for _, ref := range refs {
		sym := r.syms.Get(ref)
		if loc := sym.Loc(); loc != (source.Span{}) {
			r.report(diag.Errorf(diag.ResolveCircularDependency, loc,
				"Circular dependency: `%s` is a parent of itself through %s", r.syms.FullName(ref), summary))
		}
		if slices.Contains(refs, sym.Superclass) {
			super := core.Object
			if ref == core.BasicObject || ref == core.Object {
				super = core.NoSymbol
			}
			r.syms.SetSuperclass(ref, super)
		}
		if len(sym.Mixins) > 0 {
			kept := make([]core.SymbolRef, 0, len(sym.Mixins))
			for _, m := range sym.Mixins {
				if !slices.Contains(refs, m) {
					kept = append(kept, m)
				}
			}
			r.syms.SetMixins(ref, kept)
		}
	}
}

// dedupKeepLast drops repeated ancestors, keeping the occurrence closest to
// the root: a module already included by a parent stays where the parent put
// it. The first element (the class itself) always stays first.
func dedupKeepLast(chain []core.SymbolRef) []core.SymbolRef {
	if len(chain) <= 1 {
		return chain
	}
	seen := make(map[core.SymbolRef]bool, len(chain))
	out := make([]core.SymbolRef, 0, len(chain))
	for i := len(chain) - 1; i >= 1; i-- {
		if seen[chain[i]] || chain[i] == chain[0] {
			continue
		}
		seen[chain[i]] = true
		out = append(out, chain[i])
	}
	out = append(out, chain[0])
	slices.Reverse(out)
	return out
}
