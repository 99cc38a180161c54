package driver

import (
	"context"
	"fmt"
	"os"

	"garnet/internal/core"
	"garnet/internal/diag"
	"garnet/internal/progress"
	"garnet/internal/source"
	"garnet/internal/trace"
	"garnet/internal/workers"
)

// InlinePath is the path of the `-e` virtual file.
const InlinePath = "-e"

// Run executes one whole check (or autogen) run: baseline state, indexing of
// the inputs, name, resolve, then typecheck or autogen, and the final flush.
//
// Ordinary failures are returned as errors. Broken invariants panic; the CLI
// turns those into the critical exit code.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Parser == nil {
		return nil, fmt.Errorf("driver: no parser configured")
	}
	log := opts.Log
	tr := trace.FromContext(ctx)
	runSpan := trace.Begin(tr, trace.ScopeDriver, "run", trace.CurrentSpan(ctx).SpanID)
	defer runSpan.End("")
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: runSpan.ID()})

	p := NewPipeline(opts)
	pool := workers.New(opts.Threads, log)
	log.Debug("run started", "threads", pool.Size(), "inputs", len(opts.Paths), "autogen", opts.Autogen != nil)

	base, err := p.createInitialGlobalState(ctx, pool)
	if err != nil {
		return nil, err
	}
	gs := base.gs
	flags := opts.Flags
	flags.Autogen = opts.Autogen != nil
	gs.SetFlags(flags)

	refs := ReserveFiles(gs, opts.Paths)
	if opts.HasInline {
		fw := gs.UnfreezeFiles()
		id := fw.EnterVirtual(InlinePath, []byte(opts.Inline))
		fw.AssumeStrictness(id, source.StrictTrue)
		fw.Freeze()
		refs = append(refs, id)
	}
	for _, stage := range progress.Stages {
		progress.Emit(opts.Progress, progress.Event{Stage: stage, Status: progress.StatusQueued, Total: len(refs)})
	}

	files := p.Index(ctx, gs, pool, refs)
	p.retainGlobalState(base)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run interrupted after index: %w", err)
	}

	res := &Result{GS: gs, Inputs: refs, Files: files, PayloadHit: base.hit}
	if opts.Autogen != nil {
		progress.Emit(opts.Progress, progress.Event{Stage: progress.StageTypecheck, Status: progress.StatusSkipped})
		p.Name(ctx, gs, files)
		p.ResolveConstants(ctx, gs, files)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted after resolve: %w", err)
		}
		out, err := p.Autogen(ctx, gs, pool, files, *opts.Autogen)
		if err != nil {
			return nil, err
		}
		res.Autogen = out
	} else {
		progress.Emit(opts.Progress, progress.Event{Stage: progress.StageAutogen, Status: progress.StatusSkipped})
		p.Name(ctx, gs, files)
		p.Resolve(ctx, gs, files)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted after resolve: %w", err)
		}
		p.Typecheck(ctx, gs, pool, files)
	}

	if opts.SuggestTyped {
		p.suggestTyped(gs, refs)
	}

	q := gs.Errors()
	q.Flush(func(d diag.Diagnostic) { res.Diagnostics = append(res.Diagnostics, d) })
	res.ErrorCount = q.ErrorCount()
	res.ExitCode = exitCode(q, flags)
	if n := q.Dropped(); n > 0 {
		log.Warn("diagnostics over the limit were dropped", "dropped", n, "limit", flags.MaxDiagnostics)
	}

	if opts.StoreState != "" {
		if err := storeState(gs, opts.StoreState); err != nil {
			return res, err
		}
	}

	res.Counters = p.counters
	res.Timer = p.timer
	res.Timings = p.timings
	log.Debug("run finished", "errors", res.ErrorCount, "exit", res.ExitCode, "payload_hit", base.hit)
	return res, nil
}

func exitCode(q *core.ErrorQueue, flags core.RunFlags) int {
	switch {
	case q.HadCritical():
		return ExitCritical
	case q.ErrorCount() > 0 && !flags.SuppressNonCritical:
		return ExitErrors
	}
	return ExitOK
}

func storeState(gs *core.GlobalState, path string) error {
	blob, err := core.Encode(gs)
	if err != nil {
		return fmt.Errorf("store state: %w", err)
	}
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		return fmt.Errorf("store state: %w", err)
	}
	return nil
}
