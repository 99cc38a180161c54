package ast

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented tree of f for debugging (`garnet parse`).
func Dump(w io.Writer, f *File) error {
	d := dumper{w: w}
	d.nodes(f.Nodes, 0)
	return d.err
}

type dumper struct {
	w   io.Writer
	err error
}

func (d *dumper) line(depth int, format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

func (d *dumper) nodes(nodes []Node, depth int) {
	for _, n := range nodes {
		d.node(n, depth)
	}
}

func (d *dumper) node(n Node, depth int) {
	sp := n.NodeSpan()
	switch n := n.(type) {
	case *ClassDef:
		switch {
		case n.Kind == ScopeSingleton:
			d.line(depth, "SingletonClass @%d..%d", sp.Start, sp.End)
		case n.Superclass != nil:
			d.line(depth, "%s %s < %s @%d..%d", titleKind(n.Kind), n.Name.String(), n.Superclass.String(), sp.Start, sp.End)
		default:
			d.line(depth, "%s %s @%d..%d", titleKind(n.Kind), n.Name.String(), sp.Start, sp.End)
		}
	case *MethodDef:
		recv := ""
		if n.Self {
			recv = "self."
		}
		syn := ""
		if n.Synthesized {
			syn = " (synthesized)"
		}
		d.line(depth, "Def %s%s/%s%s @%d..%d", recv, n.Name, n.Params.Arity(), syn, sp.Start, sp.End)
	case *ConstAssign:
		d.line(depth, "ConstAssign %s @%d..%d", n.Name.String(), sp.Start, sp.End)
	case *Mixin:
		d.line(depth, "%s %s", titleMixin(n.Kind), n.Target.String())
	case *Send:
		recv := ""
		switch n.ReceiverKind {
		case ReceiverConst:
			recv = n.Receiver.String() + "."
		case ReceiverConstNew:
			recv = n.Receiver.String() + ".new."
		case ReceiverOther:
			recv = "?."
		}
		d.line(depth, "Send %s%s/%d @%d..%d", recv, n.Method, n.Args, sp.Start, sp.End)
	case *ConstRef:
		d.line(depth, "Const %s", n.Path.String())
	}
	d.nodes(Children(n), depth+1)
}

func titleKind(k ScopeKind) string {
	if k == ScopeModule {
		return "Module"
	}
	return "Class"
}

func titleMixin(k MixinKind) string {
	if k == MixinExtend {
		return "Extend"
	}
	return "Include"
}
