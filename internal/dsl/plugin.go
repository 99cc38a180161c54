package dsl

import (
	"context"
	"fmt"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"

	"garnet/internal/ast"
)

// run evaluates the plugin with globals
//
//	method      the triggering method name
//	args        symbol literal arguments, without the colon
//	class_name  the enclosing class path
//
// The script must evaluate to a list. Each element is a method name (arity 0)
// or a map {"name": string, "args": int, "rest": bool, "singleton": bool}.
func (p plugin) run(ctx context.Context, send *ast.Send, className string) ([]*ast.MethodDef, error) {
	args := make([]object.Object, 0, len(send.SymbolArgs))
	for _, a := range send.SymbolArgs {
		args = append(args, object.NewString(a))
	}
	result, err := risor.Eval(ctx, p.code,
		risor.WithGlobal("method", object.NewString(send.Method)),
		risor.WithGlobal("args", object.NewList(args)),
		risor.WithGlobal("class_name", object.NewString(className)),
	)
	if err != nil {
		return nil, err
	}
	list, ok := result.(*object.List)
	if !ok {
		return nil, fmt.Errorf("script returned %s, want a list", result.Type())
	}
	defs := make([]*ast.MethodDef, 0, len(list.Value()))
	for i, item := range list.Value() {
		def, err := methodFromObject(item, send)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func methodFromObject(item object.Object, send *ast.Send) (*ast.MethodDef, error) {
	switch v := item.(type) {
	case *object.String:
		if v.Value() == "" {
			return nil, fmt.Errorf("empty method name")
		}
		return synthesized(v.Value(), ast.Params{}, send), nil
	case *object.Map:
		fields := v.Value()
		name, ok := fields["name"].(*object.String)
		if !ok || name.Value() == "" {
			return nil, fmt.Errorf("map item needs a non-empty string \"name\"")
		}
		var params ast.Params
		if n, ok := fields["args"].(*object.Int); ok {
			if n.Value() < 0 {
				return nil, fmt.Errorf("negative args for %q", name.Value())
			}
			params.Required = int(n.Value())
		}
		if rest, ok := fields["rest"].(*object.Bool); ok {
			params.Rest = rest.Value()
		}
		def := synthesized(name.Value(), params, send)
		if single, ok := fields["singleton"].(*object.Bool); ok {
			def.Self = single.Value()
		}
		return def, nil
	}
	return nil, fmt.Errorf("unsupported element %s", item.Type())
}
