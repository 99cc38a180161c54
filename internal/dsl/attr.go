package dsl

import (
	"garnet/internal/ast"
	"garnet/internal/diag"
)

// attrMethods synthesizes accessors for attr_reader/attr_writer/attr_accessor.
func attrMethods(send *ast.Send, bag *diag.Bag) ([]*ast.MethodDef, bool) {
	var reader, writer bool
	switch send.Method {
	case "attr_reader":
		reader = true
	case "attr_writer":
		writer = true
	case "attr_accessor":
		reader, writer = true, true
	default:
		return nil, false
	}
	if send.Splat || send.Args != len(send.SymbolArgs) {
		bag.Add(diag.Warnf(diag.DSLBadArgument, send.Span,
			"`%s` arguments must be symbol literals to be understood statically", send.Method))
	}
	defs := make([]*ast.MethodDef, 0, len(send.SymbolArgs)*2)
	for _, name := range send.SymbolArgs {
		if reader {
			defs = append(defs, synthesized(name, ast.Params{}, send))
		}
		if writer {
			defs = append(defs, synthesized(name+"=", ast.Params{Required: 1}, send))
		}
	}
	return defs, true
}

func synthesized(name string, params ast.Params, send *ast.Send) *ast.MethodDef {
	return &ast.MethodDef{
		Name:        name,
		Params:      params,
		Span:        send.Span,
		NameSpan:    send.MethodSpan,
		Synthesized: true,
	}
}
