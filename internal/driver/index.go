package driver

import (
	"context"
	"errors"
	"fmt"
	"os"

	"garnet/internal/ast"
	"garnet/internal/core"
	"garnet/internal/diag"
	"garnet/internal/frontend"
	"garnet/internal/progress"
	"garnet/internal/source"
	"garnet/internal/workers"
)

type readResult struct {
	content []byte
	read    bool
	err     error
}

type parsed struct {
	tree  *ast.File
	diags []diag.Diagnostic
}

// Index reads refs from disk, registers their contents, then parses and
// rewrites them. Reading and parsing fan out; registration runs on the driver
// under the file table writer. The trees come back in the order of refs.
// Read and syntax errors become diagnostics of the file.
func (p *Pipeline) Index(ctx context.Context, gs *core.GlobalState, pool *workers.Pool, refs []source.FileID) []*ast.File {
	ctx, end := p.phase(ctx, progress.StageIndex, "index")
	defer func() { end(fmt.Sprintf("%d files", len(refs))) }()

	files := gs.Files()
	reads := fanOut(ctx, p, pool, "index.read", progress.StageIndex, len(refs), func(w *workers.Worker, i int) readResult {
		f := files.Get(refs[i])
		if f.Loaded() {
			return readResult{}
		}
		b, err := os.ReadFile(f.Path())
		if err != nil {
			return readResult{err: err}
		}
		w.Counters.Inc("types.input.files")
		w.Counters.Add("types.input.bytes", int64(len(b)))
		return readResult{content: b, read: true}
	})

	var ds []diag.Diagnostic
	fw := gs.UnfreezeFiles()
	for i, id := range refs {
		r := reads[i]
		switch {
		case r.err != nil:
			ds = append(ds, diag.Errorf(diag.ParseReadFailed, source.Span{File: id},
				"Failed to read `%s`: %v", fw.Get(id).Path(), unwrapPathError(r.err)))
			continue
		case r.read:
			fw.SetSource(id, r.content)
		}
		if sig := fw.Get(id).Sigil(); sig.Found && !sig.Valid {
			ds = append(ds, diag.Errorf(diag.ParseInvalidSigil, source.Span{File: id, Start: sig.Start, End: sig.End},
				"Unknown strictness level `%s`", sig.Word))
		}
	}
	fw.Freeze()

	results := fanOut(ctx, p, pool, "index.parse", progress.StageIndex, len(refs), func(w *workers.Worker, i int) parsed {
		return p.parseOne(ctx, w, files.Get(refs[i]), refs[i])
	})
	trees := make([]*ast.File, len(refs))
	for i, r := range results {
		trees[i] = r.tree
		ds = append(ds, r.diags...)
	}
	p.report(gs, ds)
	return trees
}

func (p *Pipeline) parseOne(ctx context.Context, w *workers.Worker, f *core.File, id source.FileID) parsed {
	if !f.Loaded() {
		return parsed{tree: &ast.File{File: id}}
	}
	var out parsed
	tree, err := p.opts.Parser.Parse(ctx, id, f.Content())
	if err != nil {
		out.diags = append(out.diags, parseDiagnostic(id, err))
	}
	if tree == nil {
		tree = &ast.File{File: id}
	}
	tree.File = id
	w.Counters.Inc("parse.trees")
	if f.IsPayload() {
		w.Counters.Inc("payload.files.parsed")
	}
	if !p.opts.SkipDSL {
		bag := diag.NewBag(0)
		if n := p.opts.DSL.Rewrite(ctx, tree, bag); n > 0 {
			w.Counters.Add("dsl.rewrites", int64(n))
		}
		out.diags = append(out.diags, bag.Items()...)
	}
	out.tree = tree
	return out
}

func parseDiagnostic(id source.FileID, err error) diag.Diagnostic {
	var se *frontend.SyntaxError
	if errors.As(err, &se) {
		sp := se.Span
		if !sp.File.IsValid() {
			sp.File = id
		}
		return diag.NewError(diag.ParseError, sp, se.Error())
	}
	return diag.NewError(diag.ParseError, source.Span{File: id}, "parse failed: "+err.Error())
}

// путь уже в сообщении, PathError повторил бы его
func unwrapPathError(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
