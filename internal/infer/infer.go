// Package infer checks method calls: that the method exists on the receiver
// and that the positional argument count fits its arity. Receivers it cannot
// type statically are skipped and counted. Check only reads global state and
// is safe to call from many workers at once.
package infer

import (
	"garnet/internal/ast"
	"garnet/internal/core"
	"garnet/internal/diag"
	"garnet/internal/source"
)

// Stats counts what Check saw in one file.
type Stats struct {
	Sends   int // все вызовы
	Checked int // вызовы с известным получателем
	Untyped int // получатель не выводится статически
}

// Check returns the diagnostics of f.
func Check(view core.View, f *ast.File) []diag.Diagnostic {
	ds, _ := CheckStats(view, f)
	return ds
}

// CheckStats is Check plus per-file statistics.
func CheckStats(view core.View, f *ast.File) ([]diag.Diagnostic, Stats) {
	c := &checker{view: view}
	c.nodes(f.Nodes, context{self: core.Object})
	return c.diags, c.stats
}

// context describes what `self` is at a point in the tree.
type context struct {
	self      core.SymbolRef
	singleton bool // self: сам объект класса, а не экземпляр
}

type checker struct {
	view  core.View
	diags []diag.Diagnostic
	stats Stats
}

func (c *checker) nodes(nodes []ast.Node, ctx context) {
	for _, node := range nodes {
		switch n := node.(type) {
		case *ast.ClassDef:
			inner := ctx
			switch {
			case !n.Symbol.IsValid():
			case n.Kind == ast.ScopeSingleton:
				inner = context{self: c.view.Symbols.Get(n.Symbol).Attached, singleton: true}
			default:
				inner = context{self: n.Symbol, singleton: true}
			}
			c.nodes(n.Body, inner)
		case *ast.MethodDef:
			c.nodes(n.Body, c.methodContext(n, ctx))
		case *ast.ConstAssign:
			c.nodes(n.Value, ctx)
		case *ast.Send:
			c.send(n, ctx)
			c.nodes(n.Block, ctx)
		}
	}
}

func (c *checker) methodContext(n *ast.MethodDef, outer context) context {
	self := outer.self
	if !n.Symbol.IsValid() {
		return outer
	}
	owner := c.view.Symbols.Owner(n.Symbol)
	sym := c.view.Symbols.Get(owner)
	if sym.Flags&core.FlagSingleton != 0 {
		return context{self: sym.Attached, singleton: true}
	}
	if owner.IsValid() {
		self = owner
	}
	return context{self: self}
}

func (c *checker) send(n *ast.Send, ctx context) {
	c.stats.Sends++
	switch n.ReceiverKind {
	case ast.ReceiverSelf:
		c.lookup(n, ctx.self, ctx.singleton)
	case ast.ReceiverConst:
		target := n.Receiver.Symbol
		if !c.typed(target) {
			c.stats.Untyped++
			return
		}
		if n.Method == "new" && c.view.Symbols.Kind(target) == core.KindClass {
			c.newCall(n, target)
			return
		}
		c.lookup(n, target, true)
	case ast.ReceiverConstNew:
		target := n.Receiver.Symbol
		if !c.typed(target) || c.view.Symbols.Kind(target) != core.KindClass {
			c.stats.Untyped++
			return
		}
		c.lookup(n, target, false)
	default:
		c.stats.Untyped++
	}
}

// typed reports whether ref is a class or module the checker can reason about.
func (c *checker) typed(ref core.SymbolRef) bool {
	return ref.IsValid() && ref != core.StubModule && c.view.Symbols.Kind(ref).IsScope()
}

func (c *checker) lookup(n *ast.Send, recv core.SymbolRef, singleton bool) {
	c.stats.Checked++
	syms := c.view.Symbols
	var (
		method core.SymbolRef
		found  bool
	)
	if name, ok := c.view.Names.Find(n.Method); ok {
		if singleton {
			method, found = syms.LookupSingletonMethod(recv, name)
		} else {
			method, found = syms.LookupMethod(recv, name)
		}
	}
	if !found {
		if c.hasMethodMissing(recv, singleton) {
			return
		}
		code, where := diag.InferUnknownMethod, syms.FullName(recv)
		if singleton {
			code, where = diag.InferUnknownSingletonMethod, "T.class_of("+where+")"
		}
		c.diags = append(c.diags, diag.Errorf(code, methodSpan(n),
			"Method `%s` does not exist on `%s`", n.Method, where))
		return
	}
	c.arity(n, method)
}

// newCall checks `Const.new(args)` against the arity of `initialize`.
func (c *checker) newCall(n *ast.Send, cls core.SymbolRef) {
	c.stats.Checked++
	name, ok := c.view.Names.Find("initialize")
	if !ok {
		return
	}
	if init, found := c.view.Symbols.LookupMethod(cls, name); found {
		c.arity(n, init)
	}
}

func (c *checker) arity(n *ast.Send, method core.SymbolRef) {
	if n.Splat {
		return
	}
	target := c.view.Symbols.Get(method)
	arity := target.Arity
	args := n.Args
	if n.KwArgs && !arity.Keywords {
		// без keyword-параметров пары собираются в последний позиционный Hash
		args++
	}
	if arity.Accepts(args) {
		return
	}
	c.diags = append(c.diags, diag.Errorf(diag.InferArgumentCountMismatch, methodSpan(n),
		"Wrong number of arguments for `%s`: expected %s, got %d",
		c.view.Symbols.FullName(method), arity, args).
		WithNote(target.Loc(), "method defined here"))
}

// hasMethodMissing reports whether user code defines method_missing for recv.
func (c *checker) hasMethodMissing(recv core.SymbolRef, singleton bool) bool {
	name, ok := c.view.Names.Find("method_missing")
	if !ok {
		return false
	}
	var m core.SymbolRef
	if singleton {
		m, ok = c.view.Symbols.LookupSingletonMethod(recv, name)
	} else {
		m, ok = c.view.Symbols.LookupMethod(recv, name)
	}
	return ok && c.view.Symbols.Get(m).Flags&core.FlagPayload == 0
}

func methodSpan(n *ast.Send) source.Span {
	if n.MethodSpan != (source.Span{}) {
		return n.MethodSpan
	}
	return n.Span
}
