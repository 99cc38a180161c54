// Package dsl rewrites metaprogramming calls into plain method definitions
// before naming: the attr_* family natively, anything else through risor
// plugin scripts configured in garnet.toml.
package dsl

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"garnet/internal/ast"
	"garnet/internal/diag"
	"garnet/internal/source"
)

// PluginSpec is one `[[dsl]]` entry: calls to Method inside a class body run
// Script (a path) or Code (inline risor source).
type PluginSpec struct {
	Method string
	Script string
	Code   string
}

type plugin struct {
	method string
	label  string
	code   string
	err    error // скрипт не найден или не прочитан
}

// Rewriter applies DSL passes to parsed files. It is immutable after New and
// safe for concurrent use.
type Rewriter struct {
	plugins map[string]plugin
}

// New loads plugin scripts. Relative script paths resolve against baseDir.
// Unreadable scripts do not fail construction; every call site of such a
// plugin reports DSLUnknownTrigger instead.
func New(specs []PluginSpec, baseDir string) (*Rewriter, error) {
	r := &Rewriter{plugins: make(map[string]plugin, len(specs))}
	for _, s := range specs {
		if s.Method == "" {
			return nil, fmt.Errorf("dsl plugin without method name")
		}
		if _, dup := r.plugins[s.Method]; dup {
			return nil, fmt.Errorf("dsl plugin for %q defined twice", s.Method)
		}
		p := plugin{method: s.Method, label: "<inline:" + s.Method + ">", code: s.Code}
		if s.Script != "" {
			path := s.Script
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			p.label = path
			data, err := os.ReadFile(path)
			if err != nil {
				p.err = err
			} else {
				p.code = string(data)
			}
		}
		if p.code == "" && p.err == nil {
			return nil, fmt.Errorf("dsl plugin %q has neither script nor code", s.Method)
		}
		r.plugins[s.Method] = p
	}
	return r, nil
}

// Plugins counts configured plugins.
func (r *Rewriter) Plugins() int {
	if r == nil {
		return 0
	}
	return len(r.plugins)
}

// Digest identifies the plugin set: method names with their code, in method
// order. Unreadable scripts count by label. A nil or empty Rewriter has the
// zero digest.
func (r *Rewriter) Digest() source.Digest {
	if r.Plugins() == 0 {
		return source.Digest{}
	}
	methods := make([]string, 0, len(r.plugins))
	for m := range r.plugins {
		methods = append(methods, m)
	}
	slices.Sort(methods)
	h := sha256.New()
	for _, m := range methods {
		p := r.plugins[m]
		fmt.Fprintf(h, "%s\x00%d:%s\x00", m, len(p.code), p.code)
		if p.err != nil {
			fmt.Fprintf(h, "unreadable:%s\x00", p.label)
		}
	}
	var d source.Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Rewrite expands DSL calls of f in place. Problems are added to bag; the
// returned count is the number of synthesized methods.
func (r *Rewriter) Rewrite(ctx context.Context, f *ast.File, bag *diag.Bag) int {
	if r == nil {
		return 0
	}
	return r.body(ctx, &f.Nodes, "Object", bag)
}

// body rewrites one definition body. className is the enclosing class path
// passed to plugins.
func (r *Rewriter) body(ctx context.Context, nodes *[]ast.Node, className string, bag *diag.Bag) int {
	total := 0
	out := make([]ast.Node, 0, len(*nodes))
	for _, n := range *nodes {
		switch n := n.(type) {
		case *ast.ClassDef:
			name := className
			if n.Kind != ast.ScopeSingleton {
				name = n.Name.String()
			}
			total += r.body(ctx, &n.Body, name, bag)
		case *ast.Send:
			if n.ReceiverKind == ast.ReceiverSelf {
				if defs, ok := r.expand(ctx, n, className, bag); ok {
					// исходный вызов остаётся: его тоже проверяет typecheck
					out = append(out, n)
					for _, d := range defs {
						out = append(out, d)
					}
					total += len(defs)
					continue
				}
			}
		}
		out = append(out, n)
	}
	*nodes = out
	return total
}

func (r *Rewriter) expand(ctx context.Context, send *ast.Send, className string, bag *diag.Bag) ([]*ast.MethodDef, bool) {
	if defs, ok := attrMethods(send, bag); ok {
		return defs, true
	}
	p, ok := r.plugins[send.Method]
	if !ok {
		return nil, false
	}
	if p.err != nil {
		bag.Add(diag.Errorf(diag.DSLUnknownTrigger, send.MethodSpan,
			"DSL plugin for `%s` is unavailable: %v", send.Method, p.err))
		return nil, true
	}
	defs, err := p.run(ctx, send, className)
	if err != nil {
		bag.Add(diag.Errorf(diag.DSLPluginFailed, send.Span,
			"DSL plugin %s failed on `%s`: %v", p.label, send.Method, err))
		return nil, true
	}
	return defs, true
}
