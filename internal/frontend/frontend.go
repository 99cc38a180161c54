// Package frontend holds the contract between the pipeline and concrete Ruby
// parsers.
package frontend

import (
	"context"
	"fmt"

	"garnet/internal/ast"
	"garnet/internal/source"
)

// Parser turns normalized file content into a tree. Implementations must be
// safe for concurrent use: the pipeline calls Parse from every worker.
//
// A *SyntaxError may be returned together with a partial tree; the pipeline
// reports the error and keeps whatever was recovered.
type Parser interface {
	Parse(ctx context.Context, file source.FileID, src []byte) (*ast.File, error)
}

// SyntaxError is a per-file parse failure. It never aborts a run.
type SyntaxError struct {
	Span source.Span
	Msg  string
	// Count is the total number of error nodes the parser recovered from.
	Count int
}

func (e *SyntaxError) Error() string {
	if e.Count > 1 {
		return fmt.Sprintf("%s (and %d more)", e.Msg, e.Count-1)
	}
	return e.Msg
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(ctx context.Context, file source.FileID, src []byte) (*ast.File, error)

// Parse calls f.
func (f ParserFunc) Parse(ctx context.Context, file source.FileID, src []byte) (*ast.File, error) {
	return f(ctx, file, src)
}
