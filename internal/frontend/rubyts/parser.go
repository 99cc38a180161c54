// Package rubyts lowers tree-sitter Ruby syntax trees into garnet's AST.
package rubyts

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"garnet/internal/ast"
	"garnet/internal/frontend"
	"garnet/internal/source"
)

// Parser is a frontend.Parser backed by tree-sitter-ruby. The zero value is
// ready to use; a fresh sitter.Parser is created per call.
type Parser struct{}

var _ frontend.Parser = Parser{}

// New returns a Parser.
func New() Parser { return Parser{} }

// Parse parses src. Syntax errors come back as *frontend.SyntaxError together
// with the tree lowered from the recovered parse.
func (Parser) Parse(ctx context.Context, file source.FileID, src []byte) (*ast.File, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(ruby.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	l := lowerer{file: file, src: src}
	out := &ast.File{File: file, Nodes: l.children(root)}
	if root.HasError() {
		return out, l.syntaxError(root)
	}
	return out, nil
}

type lowerer struct {
	file source.FileID
	src  []byte
}

func (l *lowerer) span(n *sitter.Node) source.Span {
	return source.Span{File: l.file, Start: n.StartByte(), End: n.EndByte()}
}

func (l *lowerer) text(n *sitter.Node) string { return n.Content(l.src) }

// children lowers every named child of n, flattening the results.
func (l *lowerer) children(n *sitter.Node, skip ...*sitter.Node) []ast.Node {
	var out []ast.Node
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c == nil || isSkipped(c, skip) {
			continue
		}
		out = append(out, l.lower(c)...)
	}
	return out
}

func isSkipped(n *sitter.Node, skip []*sitter.Node) bool {
	for _, s := range skip {
		if s != nil && s.StartByte() == n.StartByte() && s.EndByte() == n.EndByte() && s.Type() == n.Type() {
			return true
		}
	}
	return false
}

func (l *lowerer) lower(n *sitter.Node) []ast.Node {
	switch n.Type() {
	case "class", "module":
		return l.lowerScope(n)
	case "singleton_class":
		return l.lowerSingletonClass(n)
	case "method":
		return l.lowerMethod(n, false)
	case "singleton_method":
		obj := n.ChildByFieldName("object")
		if obj == nil || obj.Type() != "self" {
			// def obj.m: receiver is not statically known
			return l.children(n, n.ChildByFieldName("name"), n.ChildByFieldName("parameters"), obj)
		}
		return l.lowerMethod(n, true)
	case "assignment", "operator_assignment":
		return l.lowerAssignment(n)
	case "call", "method_call":
		return l.lowerCall(n)
	case "constant", "scope_resolution":
		if path, ok := l.constPath(n); ok {
			return []ast.Node{&ast.ConstRef{Path: path}}
		}
		return l.children(n)
	case "comment":
		return nil
	}
	return l.children(n)
}

func (l *lowerer) lowerScope(n *sitter.Node) []ast.Node {
	nameNode := n.ChildByFieldName("name")
	superNode := n.ChildByFieldName("superclass")
	if nameNode == nil {
		return l.children(n, superNode)
	}
	path, ok := l.constPath(nameNode)
	if !ok {
		// class foo::Bar: scope is dynamic
		return l.children(n, nameNode, superNode)
	}
	def := &ast.ClassDef{Kind: ast.ScopeClass, Name: path, Span: l.span(n)}
	if n.Type() == "module" {
		def.Kind = ast.ScopeModule
	}
	var pre []ast.Node
	if superNode != nil {
		expr := superNode
		if superNode.Type() == "superclass" && superNode.NamedChildCount() > 0 {
			expr = superNode.NamedChild(0)
		}
		if sp, ok := l.constPath(expr); ok {
			def.Superclass = &sp
		} else {
			// class A < Struct.new(:x): вызовы всё равно проверяем
			pre = l.lower(expr)
		}
	}
	def.Body = l.children(n, nameNode, superNode)
	return append(pre, def)
}

func (l *lowerer) lowerSingletonClass(n *sitter.Node) []ast.Node {
	value := n.ChildByFieldName("value")
	if value == nil || value.Type() != "self" {
		return l.children(n, value)
	}
	return []ast.Node{&ast.ClassDef{
		Kind: ast.ScopeSingleton,
		Body: l.children(n, value),
		Span: l.span(n),
	}}
}

func (l *lowerer) lowerMethod(n *sitter.Node, self bool) []ast.Node {
	nameNode := n.ChildByFieldName("name")
	paramsNode := n.ChildByFieldName("parameters")
	if nameNode == nil {
		return nil
	}
	def := &ast.MethodDef{
		Name:     l.text(nameNode),
		Self:     self,
		Span:     l.span(n),
		NameSpan: l.span(nameNode),
	}
	if paramsNode != nil {
		def.Params = l.params(paramsNode)
	}
	def.Body = l.children(n, nameNode, paramsNode, n.ChildByFieldName("object"))
	return []ast.Node{def}
}

func (l *lowerer) params(n *sitter.Node) ast.Params {
	var p ast.Params
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "identifier", "destructured_parameter":
			p.Required++
		case "optional_parameter":
			p.Optional++
		case "splat_parameter", "forward_parameter":
			p.Rest = true
		case "block_parameter":
			p.Block = true
		case "keyword_parameter":
			if name := c.ChildByFieldName("name"); name != nil {
				p.Keywords = append(p.Keywords, l.text(name))
			}
		case "hash_splat_parameter":
			p.Keywords = append(p.Keywords, "**")
		}
	}
	return p
}

func (l *lowerer) lowerAssignment(n *sitter.Node) []ast.Node {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil {
		return l.children(n)
	}
	if left.Type() == "constant" || left.Type() == "scope_resolution" {
		if path, ok := l.constPath(left); ok {
			var value []ast.Node
			if right != nil {
				value = l.lower(right)
			}
			return []ast.Node{&ast.ConstAssign{Name: path, Value: value, Span: l.span(n)}}
		}
	}
	return l.children(n, left)
}

// constPath converts constant / scope_resolution nodes. ok is false when the
// path has a dynamic scope (`foo::Bar`).
func (l *lowerer) constPath(n *sitter.Node) (ast.ConstPath, bool) {
	switch n.Type() {
	case "constant":
		return ast.ConstPath{Segments: []string{l.text(n)}, Span: l.span(n)}, true
	case "scope_resolution":
		name := n.ChildByFieldName("name")
		if name == nil {
			return ast.ConstPath{}, false
		}
		scope := n.ChildByFieldName("scope")
		if scope == nil {
			return ast.ConstPath{Segments: []string{l.text(name)}, Absolute: true, Span: l.span(n)}, true
		}
		prefix, ok := l.constPath(scope)
		if !ok {
			return ast.ConstPath{}, false
		}
		prefix.Segments = append(prefix.Segments, l.text(name))
		prefix.Span = l.span(n)
		return prefix, true
	}
	return ast.ConstPath{}, false
}

func isConst(n *sitter.Node) bool {
	return n != nil && (n.Type() == "constant" || n.Type() == "scope_resolution")
}

func (l *lowerer) lowerCall(n *sitter.Node) []ast.Node {
	recv := n.ChildByFieldName("receiver")
	method := n.ChildByFieldName("method")
	args := n.ChildByFieldName("arguments")
	block := n.ChildByFieldName("block")
	if method == nil {
		return l.children(n)
	}
	name := l.text(method)

	var pre []ast.Node
	if recv == nil && (name == "include" || name == "extend") && args != nil {
		if mixins, rest := l.mixins(name, args); len(mixins) > 0 {
			return append(rest, mixins...)
		}
	}

	send := &ast.Send{Method: name, Span: l.span(n), MethodSpan: l.span(method)}
	switch {
	case recv == nil || recv.Type() == "self":
		send.ReceiverKind = ast.ReceiverSelf
	case isConst(recv):
		if path, ok := l.constPath(recv); ok {
			send.ReceiverKind = ast.ReceiverConst
			send.Receiver = &path
		} else {
			send.ReceiverKind = ast.ReceiverOther
			pre = l.lower(recv)
		}
	case (recv.Type() == "call" || recv.Type() == "method_call") && isNewCall(recv, l.src):
		inner := recv.ChildByFieldName("receiver")
		path, _ := l.constPath(inner)
		send.ReceiverKind = ast.ReceiverConstNew
		send.Receiver = &path
		pre = l.lower(recv) // сам вызов Foo.new(...) проверяется отдельно
	default:
		send.ReceiverKind = ast.ReceiverOther
		pre = l.lower(recv)
	}

	if args != nil {
		pre = append(pre, l.arguments(send, args)...)
	}
	if block != nil {
		send.Block = l.children(block, block.ChildByFieldName("parameters"))
	}
	return append(pre, send)
}

func isNewCall(n *sitter.Node, src []byte) bool {
	method := n.ChildByFieldName("method")
	return method != nil && method.Content(src) == "new" && isConst(n.ChildByFieldName("receiver"))
}

// arguments fills argument facts of send and returns the lowered nested
// expressions of the argument list.
func (l *lowerer) arguments(send *ast.Send, args *sitter.Node) []ast.Node {
	var nested []ast.Node
	count := int(args.NamedChildCount())
	for i := 0; i < count; i++ {
		c := args.NamedChild(i)
		switch c.Type() {
		case "block_argument":
			nested = append(nested, l.children(c)...)
			continue
		case "splat_argument", "hash_splat_argument", "forward_argument":
			send.Splat = true
		case "pair":
			send.KwArgs = true
			nested = append(nested, l.children(c)...)
			continue
		case "simple_symbol":
			send.SymbolArgs = append(send.SymbolArgs, strings.TrimPrefix(l.text(c), ":"))
		}
		send.Args++
		nested = append(nested, l.lower(c)...)
	}
	return nested
}

// mixins splits `include A, B` into Mixin nodes. Arguments that are not
// constants are lowered as ordinary expressions.
func (l *lowerer) mixins(name string, args *sitter.Node) ([]ast.Node, []ast.Node) {
	kind := ast.MixinInclude
	if name == "extend" {
		kind = ast.MixinExtend
	}
	var mixins, rest []ast.Node
	count := int(args.NamedChildCount())
	for i := 0; i < count; i++ {
		c := args.NamedChild(i)
		if path, ok := l.constPath(c); ok {
			mixins = append(mixins, &ast.Mixin{Kind: kind, Target: path, Span: l.span(c)})
			continue
		}
		rest = append(rest, l.lower(c)...)
	}
	return mixins, rest
}

// syntaxError reports the first error or missing node in source order.
func (l *lowerer) syntaxError(root *sitter.Node) *frontend.SyntaxError {
	var (
		first *sitter.Node
		count int
	)
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.IsError() || n.IsMissing() {
			count++
			if first == nil {
				first = n
			}
			return
		}
		if !n.HasError() {
			return
		}
		total := int(n.ChildCount())
		for i := 0; i < total; i++ {
			if c := n.Child(i); c != nil {
				visit(c)
			}
		}
	}
	visit(root)
	if first == nil {
		return &frontend.SyntaxError{Span: l.span(root), Msg: "syntax error", Count: 1}
	}
	msg := "unexpected " + snippet(l.text(first))
	if first.IsMissing() {
		msg = "missing " + first.Type()
	}
	return &frontend.SyntaxError{Span: l.span(first), Msg: msg, Count: count}
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 24 {
		s = s[:24] + "..."
	}
	if s == "" {
		return "end of input"
	}
	return fmt.Sprintf("%q", s)
}
