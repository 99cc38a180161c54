package driver

import (
	"context"
	"fmt"

	"garnet/internal/ast"
	"garnet/internal/autogen"
	"garnet/internal/core"
	"garnet/internal/diag"
	"garnet/internal/infer"
	"garnet/internal/namer"
	"garnet/internal/progress"
	"garnet/internal/resolver"
	"garnet/internal/source"
	"garnet/internal/workers"
)

// Name enters the definitions of files into the symbol table, in file order.
func (p *Pipeline) Name(ctx context.Context, gs *core.GlobalState, files []*ast.File) {
	_, end := p.phase(ctx, progress.StageName, "name")
	defer end("")

	view := gs.Files()
	nw := gs.UnfreezeNames()
	sw := gs.UnfreezeSymbols()
	n := namer.New(nw, sw)
	var ds []diag.Diagnostic
	for _, f := range files {
		payload := false
		if fl := view.Get(f.File); fl != nil {
			payload = fl.IsPayload()
		}
		ds = append(ds, n.File(f, payload)...)
	}
	sw.Freeze()
	nw.Freeze()
	p.report(gs, ds)
}

// Resolve binds every constant reference and linearizes ancestors.
func (p *Pipeline) Resolve(ctx context.Context, gs *core.GlobalState, files []*ast.File) {
	p.resolve(ctx, gs, files, resolver.ModeFull, "resolve")
}

// ResolveConstants resolves only what autogen needs: class-level constants,
// superclasses and mixins. Method bodies are left alone.
func (p *Pipeline) ResolveConstants(ctx context.Context, gs *core.GlobalState, files []*ast.File) {
	p.resolve(ctx, gs, files, resolver.ModeConstants, "resolve.constants")
}

func (p *Pipeline) resolve(ctx context.Context, gs *core.GlobalState, files []*ast.File, mode resolver.Mode, name string) {
	_, end := p.phase(ctx, progress.StageResolve, name)
	defer end("")

	nw := gs.UnfreezeNames()
	sw := gs.UnfreezeSymbols()
	ds := resolver.Run(nw.NameView, sw, files, mode)
	sw.Freeze()
	nw.Freeze()
	p.report(gs, ds)
}

type checked struct {
	diags []diag.Diagnostic
	stats infer.Stats
}

// Typecheck checks every non-payload file against the frozen global state.
func (p *Pipeline) Typecheck(ctx context.Context, gs *core.GlobalState, pool *workers.Pool, files []*ast.File) {
	ctx, end := p.phase(ctx, progress.StageTypecheck, "typecheck")
	var diags int
	defer func() { end(fmt.Sprintf("%d diagnostics", diags)) }()

	view := gs.View()
	check := p.checker()
	results := fanOut(ctx, p, pool, "typecheck", progress.StageTypecheck, len(files), func(w *workers.Worker, i int) checked {
		f := files[i]
		if fl := view.Files.Get(f.File); fl == nil || fl.IsPayload() {
			return checked{}
		}
		ds, st := check(view, f)
		w.Counters.Inc("types.checked.files")
		w.Counters.Add("types.input.sends", int64(st.Sends))
		w.Counters.Add("types.untyped.sends", int64(st.Untyped))
		return checked{diags: ds, stats: st}
	})

	var ds []diag.Diagnostic
	for _, r := range results {
		ds = append(ds, r.diags...)
	}
	diags = len(ds)
	p.report(gs, ds)
}

type generated struct {
	strval     string
	msgpack    []byte
	classlist  []string
	subclasses map[string][]string
	err        error
	skipped    bool // *.rbi: только интерфейс, в autogen не попадает
}

// Autogen extracts the requested artifacts from files and merges them.
func (p *Pipeline) Autogen(ctx context.Context, gs *core.GlobalState, pool *workers.Pool, files []*ast.File, opts AutogenOptions) (*AutogenOutput, error) {
	ctx, end := p.phase(ctx, progress.StageAutogen, "autogen")
	defer end("")

	view := gs.View()
	results := fanOut(ctx, p, pool, "autogen", progress.StageAutogen, len(files), func(w *workers.Worker, i int) generated {
		if f := view.Files.Get(files[i].File); f != nil && f.Flags()&source.FileRBI != 0 {
			w.Counters.Inc("autogen.files.rbi_skipped")
			return generated{skipped: true}
		}
		pf := autogen.Generate(view, files[i])
		var g generated
		if opts.Strval {
			g.strval = pf.String()
		}
		if opts.Msgpack {
			g.msgpack, g.err = pf.Msgpack()
		}
		if opts.Classlist {
			g.classlist = pf.Classlist()
		}
		if opts.Subclasses {
			g.subclasses = pf.Subclasses(opts.Filter)
		}
		w.Counters.Inc("autogen.files")
		return g
	})

	out := &AutogenOutput{}
	var lists [][]string
	var maps []map[string][]string
	for _, g := range results {
		if g.err != nil {
			return nil, g.err
		}
		if g.skipped {
			continue
		}
		if opts.Strval {
			out.Strval = append(out.Strval, g.strval)
		}
		if opts.Msgpack {
			out.Msgpack = append(out.Msgpack, g.msgpack)
		}
		lists = append(lists, g.classlist)
		maps = append(maps, g.subclasses)
	}
	if opts.Classlist {
		out.Classlist = autogen.MergeClasslist(lists...)
	}
	if opts.Subclasses {
		out.Subclasses = autogen.MergeSubclasses(maps...)
	}
	return out, nil
}
