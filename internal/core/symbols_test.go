package core

import (
	"testing"

	"garnet/internal/source"
)

var zeroSpan source.Span

func TestNamesAreNFCNormalized(t *testing.T) {
	gs := New()
	w := gs.UnfreezeNames()
	defer w.Freeze()

	composed := w.Intern("caf\u00e9")
	decomposed := w.Intern("cafe\u0301")
	if composed != decomposed {
		t.Fatalf("canonically equal names got different refs: %d vs %d", composed, decomposed)
	}
	if got := w.Text(composed); got != "caf\u00e9" {
		t.Fatalf("Text = %q", got)
	}
	if _, ok := w.Find("missing"); ok {
		t.Fatalf("Find must not intern")
	}
}

func TestWellKnownSymbols(t *testing.T) {
	gs := New()
	v := gs.Symbols()
	if got := v.FullName(Object); got != "Object" {
		t.Fatalf("FullName(Object) = %q", got)
	}
	if !v.IsSubclassOf(Class, Object) {
		t.Fatalf("Class must inherit from Object")
	}
	if v.Kind(Kernel) != KindModule {
		t.Fatalf("Kernel must be a module")
	}
	name, _ := gs.Names().Find("Object")
	if ref, ok := v.Member(Root, name); !ok || ref != Object {
		t.Fatalf("Object must be a member of root")
	}
}

func TestMethodLookupThroughAncestors(t *testing.T) {
	gs := New()
	nw := gs.UnfreezeNames()
	sw := gs.UnfreezeSymbols()
	defer nw.Freeze()
	defer sw.Freeze()

	fooName, barName := nw.Intern("Foo"), nw.Intern("Bar")
	greet, create := nw.Intern("greet"), nw.Intern("create")

	foo, _ := sw.EnterClass(Root, fooName, zeroSpan)
	bar, _ := sw.EnterClass(Root, barName, zeroSpan)
	sw.SetSuperclass(bar, foo)
	sw.SetAncestors(foo, []SymbolRef{foo, Object, Kernel, BasicObject})
	sw.SetAncestors(bar, []SymbolRef{bar, foo, Object, Kernel, BasicObject})

	m, existed, _ := sw.EnterMethod(foo, greet, Arity{Required: 1}, zeroSpan)
	if existed {
		t.Fatalf("fresh method reported as existing")
	}
	single := sw.SingletonClass(foo)
	if sw.SingletonClass(foo) != single {
		t.Fatalf("SingletonClass must be stable")
	}
	sm, _, _ := sw.EnterMethod(single, create, Arity{Rest: true}, zeroSpan)

	got, ok := sw.LookupMethod(bar, greet)
	if !ok || got != m {
		t.Fatalf("LookupMethod(Bar, greet) = %d, %v", got, ok)
	}
	got, ok = sw.LookupSingletonMethod(bar, create)
	if !ok || got != sm {
		t.Fatalf("LookupSingletonMethod(Bar, create) = %d, %v", got, ok)
	}
	if _, ok := sw.LookupMethod(bar, create); ok {
		t.Fatalf("singleton method must not be an instance method")
	}
	if name := sw.FullName(m); name != "Foo#greet" {
		t.Fatalf("FullName = %q", name)
	}
	if name := sw.FullName(sm); name != "Foo.create" {
		t.Fatalf("FullName = %q", name)
	}

	_, existed, prev := sw.EnterMethod(foo, greet, Arity{Required: 2}, zeroSpan)
	if !existed || prev.Required != 1 {
		t.Fatalf("redefinition must report previous arity, got %v %v", existed, prev)
	}
}

func TestNestedFullName(t *testing.T) {
	gs := New()
	nw := gs.UnfreezeNames()
	sw := gs.UnfreezeSymbols()
	defer nw.Freeze()
	defer sw.Freeze()

	a, _ := sw.EnterModule(Root, nw.Intern("A"), zeroSpan)
	b, _ := sw.EnterClass(a, nw.Intern("B"), zeroSpan)
	c, _ := sw.EnterConstant(b, nw.Intern("C"), zeroSpan)
	if got := sw.FullName(c); got != "A::B::C" {
		t.Fatalf("FullName = %q", got)
	}
}

func TestArityAccepts(t *testing.T) {
	tests := []struct {
		a    Arity
		n    int
		want bool
	}{
		{Arity{Required: 1}, 1, true},
		{Arity{Required: 1}, 2, false},
		{Arity{Required: 1, Optional: 1}, 2, true},
		{Arity{Required: 2}, 1, false},
		{Arity{Required: 1, Rest: true}, 5, true},
	}
	for _, tt := range tests {
		if got := tt.a.Accepts(tt.n); got != tt.want {
			t.Errorf("%v.Accepts(%d) = %v, want %v", tt.a, tt.n, got, tt.want)
		}
	}
}
