package namer

import (
	"testing"

	"garnet/internal/ast"
	"garnet/internal/core"
	"garnet/internal/diag"
	"garnet/internal/source"
)

func sp(start uint32) source.Span { return source.Span{File: 1, Start: start, End: start + 1} }

func path(segs ...string) ast.ConstPath {
	return ast.ConstPath{Segments: segs, Span: sp(uint32(len(segs[0])))} //nolint:gosec // test data
}

func runNamer(t *testing.T, gs *core.GlobalState, files ...*ast.File) []diag.Diagnostic {
	t.Helper()
	nw := gs.UnfreezeNames()
	sw := gs.UnfreezeSymbols()
	defer nw.Freeze()
	defer sw.Freeze()
	n := New(nw, sw)
	var out []diag.Diagnostic
	for _, f := range files {
		out = append(out, n.File(f, false)...)
	}
	return out
}

func lookup(t *testing.T, gs *core.GlobalState, owner core.SymbolRef, name string) core.SymbolRef {
	t.Helper()
	ref, ok := gs.Names().Find(name)
	if !ok {
		t.Fatalf("name %q not interned", name)
	}
	sym, ok := gs.Symbols().Member(owner, ref)
	if !ok {
		t.Fatalf("%s has no member %q", gs.Symbols().FullName(owner), name)
	}
	return sym
}

func TestNamesNestedDefinitions(t *testing.T) {
	gs := core.New()
	f := &ast.File{File: 1, Nodes: []ast.Node{
		&ast.ClassDef{Kind: ast.ScopeModule, Name: path("Shop"), Body: []ast.Node{
			&ast.ClassDef{Kind: ast.ScopeClass, Name: path("Item"), Body: []ast.Node{
				&ast.MethodDef{Name: "price", Params: ast.Params{Required: 1}, NameSpan: sp(10)},
				&ast.MethodDef{Name: "build", Self: true, NameSpan: sp(20)},
				&ast.ConstAssign{Name: path("LIMIT"), Span: sp(30)},
				&ast.ClassDef{Kind: ast.ScopeSingleton, Body: []ast.Node{
					&ast.MethodDef{Name: "all", NameSpan: sp(40)},
				}},
			}},
		}},
		&ast.MethodDef{Name: "helper", NameSpan: sp(50)},
	}}
	if diags := runNamer(t, gs, f); len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	syms := gs.Symbols()
	shop := lookup(t, gs, core.Root, "Shop")
	item := lookup(t, gs, shop, "Item")
	if syms.Kind(shop) != core.KindModule || syms.Kind(item) != core.KindClass {
		t.Fatalf("kinds: %v %v", syms.Kind(shop), syms.Kind(item))
	}
	price := lookup(t, gs, item, "price")
	if got := syms.FullName(price); got != "Shop::Item#price" {
		t.Fatalf("FullName = %q", got)
	}
	if syms.Get(price).Arity.Required != 1 {
		t.Fatalf("arity not recorded")
	}
	single := syms.SingletonOf(item)
	lookup(t, gs, single, "build")
	lookup(t, gs, single, "all")
	lookup(t, gs, item, "LIMIT")
	lookup(t, gs, core.Object, "helper")
}

func TestPlaceholderNamespaceBecomesClass(t *testing.T) {
	gs := core.New()
	f := &ast.File{File: 1, Nodes: []ast.Node{
		&ast.ClassDef{Kind: ast.ScopeClass, Name: path("A", "B")},
		&ast.ClassDef{Kind: ast.ScopeClass, Name: path("A")},
	}}
	if diags := runNamer(t, gs, f); len(diags) != 0 {
		t.Fatalf("placeholder upgrade must be silent, got %v", diags)
	}
	a := lookup(t, gs, core.Root, "A")
	if gs.Symbols().Kind(a) != core.KindClass {
		t.Fatalf("A must become a class")
	}
	lookup(t, gs, a, "B")
}

func TestRedefinitionDiagnostics(t *testing.T) {
	gs := core.New()
	first := &ast.File{File: 1, Nodes: []ast.Node{
		&ast.ClassDef{Kind: ast.ScopeModule, Name: path("M")},
		&ast.ClassDef{Kind: ast.ScopeClass, Name: path("C"), Body: []ast.Node{
			&ast.MethodDef{Name: "m", Params: ast.Params{Required: 1}, NameSpan: sp(5)},
		}},
		&ast.ConstAssign{Name: path("K"), Span: sp(7)},
	}}
	second := &ast.File{File: 2, Nodes: []ast.Node{
		&ast.ClassDef{Kind: ast.ScopeClass, Name: path("M")},
		&ast.ClassDef{Kind: ast.ScopeClass, Name: path("C"), Body: []ast.Node{
			&ast.MethodDef{Name: "m", Params: ast.Params{Required: 2}, NameSpan: sp(9)},
			&ast.MethodDef{Name: "ok", Body: []ast.Node{
				&ast.ConstAssign{Name: path("INNER"), Span: sp(11)},
			}},
		}},
		&ast.ConstAssign{Name: path("K"), Span: sp(13)},
	}}
	diags := runNamer(t, gs, first, second)
	want := []diag.Code{
		diag.NameModuleKindRedefinition,
		diag.NameRedefinitionOfMethod,
		diag.NameDynamicConstantScope,
		diag.NameConstantReassignment,
	}
	if len(diags) != len(want) {
		t.Fatalf("got %d diagnostics (%v), want %d", len(diags), diags, len(want))
	}
	for i, d := range diags {
		if d.Code != want[i] {
			t.Errorf("diag %d: code %v, want %v", i, d.Code, want[i])
		}
	}
	if len(diags[1].Notes) != 1 {
		t.Fatalf("method redefinition must point at the previous definition")
	}
}

func TestPayloadFlag(t *testing.T) {
	gs := core.New()
	nw := gs.UnfreezeNames()
	sw := gs.UnfreezeSymbols()
	New(nw, sw).File(&ast.File{File: 1, Nodes: []ast.Node{
		&ast.ClassDef{Kind: ast.ScopeClass, Name: path("Integer")},
	}}, true)
	sw.Freeze()
	nw.Freeze()
	ref := lookup(t, gs, core.Root, "Integer")
	if gs.Symbols().Get(ref).Flags&core.FlagPayload == 0 {
		t.Fatalf("payload symbols must carry FlagPayload")
	}
}
