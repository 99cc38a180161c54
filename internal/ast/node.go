package ast

import (
	"garnet/internal/core"
	"garnet/internal/source"
)

// Node is any element of a parsed Ruby file that the pipeline understands.
// Everything else the parser sees is dropped during lowering; their nested
// definitions are hoisted into the enclosing body.
type Node interface {
	NodeSpan() source.Span
	node()
}

// File is the parsed tree of exactly one source file. Phases rewrite it in
// place; ownership moves with the slice index.
type File struct {
	File  source.FileID
	Nodes []Node
}

// ScopeKind distinguishes `class`, `module` and `class << self`.
type ScopeKind uint8

const (
	ScopeClass ScopeKind = iota
	ScopeModule
	ScopeSingleton // class << self
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeClass:
		return "class"
	case ScopeModule:
		return "module"
	case ScopeSingleton:
		return "class << self"
	}
	return "?"
}

// ConstPath is a constant reference such as `A::B` or `::C`.
type ConstPath struct {
	Segments []string
	Absolute bool // начинается с ::
	Span     source.Span
	Symbol   core.SymbolRef // заполняется resolver-ом
}

// String renders the path as written.
func (p *ConstPath) String() string {
	if p == nil {
		return ""
	}
	out := ""
	if p.Absolute {
		out = "::"
	}
	for i, s := range p.Segments {
		if i > 0 {
			out += "::"
		}
		out += s
	}
	return out
}

// Last returns the final segment.
func (p *ConstPath) Last() string {
	if p == nil || len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1]
}

// ClassDef is `class Name < Super ... end`, `module Name ... end` or
// `class << self ... end` (Name is empty for the latter).
type ClassDef struct {
	Kind       ScopeKind
	Name       ConstPath
	Superclass *ConstPath
	Body       []Node
	Span       source.Span
	Symbol     core.SymbolRef
}

// Params summarizes a method's parameter list.
type Params struct {
	Required int
	Optional int
	Rest     bool // *args
	Block    bool // &blk
	Keywords []string
}

// Arity converts the parameter list into the positional arity.
func (p Params) Arity() core.Arity {
	return core.Arity{Required: p.Required, Optional: p.Optional, Rest: p.Rest, Keywords: len(p.Keywords) > 0}
}

// MethodDef is `def name(params) ... end` or `def self.name ...`.
type MethodDef struct {
	Name        string
	Self        bool
	Params      Params
	Body        []Node
	Span        source.Span
	NameSpan    source.Span
	Synthesized bool // создан DSL-переписыванием
	Symbol      core.SymbolRef
}

// ConstAssign is `NAME = value`. Value holds nested nodes found on the
// right-hand side (e.g. `Foo = Class.new(Bar)` calls).
type ConstAssign struct {
	Name   ConstPath
	Value  []Node
	Span   source.Span
	Symbol core.SymbolRef
}

// MixinKind is include or extend.
type MixinKind uint8

const (
	MixinInclude MixinKind = iota
	MixinExtend
)

func (k MixinKind) String() string {
	if k == MixinExtend {
		return "extend"
	}
	return "include"
}

// Mixin is `include Target` or `extend Target` with a constant argument.
// `include A, B` becomes two nodes.
type Mixin struct {
	Kind   MixinKind
	Target ConstPath
	Span   source.Span
}

// ReceiverKind classifies the receiver of a call for the checker.
type ReceiverKind uint8

const (
	// ReceiverSelf covers implicit-receiver calls and explicit `self.`.
	ReceiverSelf ReceiverKind = iota
	// ReceiverConst is `Const.m` (a singleton call).
	ReceiverConst
	// ReceiverConstNew is `Const.new(...).m` (an instance call).
	ReceiverConstNew
	// ReceiverOther is any receiver the checker cannot type.
	ReceiverOther
)

// Send is a method call.
type Send struct {
	ReceiverKind ReceiverKind
	Receiver     *ConstPath // для ReceiverConst и ReceiverConstNew
	Method       string
	Args         int
	Splat        bool     // есть *args или **kw, арность не проверяется
	KwArgs       bool     // есть key: value пары
	SymbolArgs   []string // литералы :sym среди аргументов
	Block        []Node   // тело блока
	Span         source.Span
	MethodSpan   source.Span
}

// ConstRef is a bare constant read, e.g. `Foo::Bar` as an expression.
type ConstRef struct {
	Path ConstPath
}

func (n *ClassDef) NodeSpan() source.Span    { return n.Span }
func (n *MethodDef) NodeSpan() source.Span   { return n.Span }
func (n *ConstAssign) NodeSpan() source.Span { return n.Span }
func (n *Mixin) NodeSpan() source.Span       { return n.Span }
func (n *Send) NodeSpan() source.Span        { return n.Span }
func (n *ConstRef) NodeSpan() source.Span    { return n.Path.Span }

func (*ClassDef) node()    {}
func (*MethodDef) node()   {}
func (*ConstAssign) node() {}
func (*Mixin) node()       {}
func (*Send) node()        {}
func (*ConstRef) node()    {}
