package driver

import (
	"context"
	"time"

	"garnet/internal/ast"
	"garnet/internal/core"
	"garnet/internal/counters"
	"garnet/internal/diag"
	"garnet/internal/infer"
	"garnet/internal/logx"
	"garnet/internal/observ"
	"garnet/internal/progress"
	"garnet/internal/source"
	"garnet/internal/trace"
)

// Pipeline runs the phases of one run. Phase methods are called from a single
// driver goroutine; only fan-out closures run on workers.
type Pipeline struct {
	opts     Options
	log      *logx.Logger
	counters *counters.Counters
	timer    *observ.Timer
	timings  progress.Timings
}

// NewPipeline prepares the phases for opts.
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{
		opts:     opts,
		log:      opts.Log,
		counters: counters.New(),
		timer:    observ.NewTimer(),
	}
}

// Counters are the merged counters of every phase run so far.
func (p *Pipeline) Counters() *counters.Counters { return p.counters }

// phase opens a trace span, a timer entry and a progress stage. The returned
// function closes all three.
func (p *Pipeline) phase(ctx context.Context, stage progress.Stage, name string) (context.Context, func(note string)) {
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopePhase, name, trace.CurrentSpan(ctx).SpanID)
	idx := p.timer.Begin(name)
	started := time.Now()
	progress.Emit(p.opts.Progress, progress.Event{Stage: stage, Status: progress.StatusWorking})
	p.log.Debug("phase started", "phase", name)
	trace.ReportStatus(ctx, "phase=%s", name)

	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})
	return ctx, func(note string) {
		elapsed := time.Since(started)
		span.End(note)
		p.timer.End(idx, note)
		p.timings.Set(stage, p.timings.Duration(stage)+elapsed)
		progress.Emit(p.opts.Progress, progress.Event{Stage: stage, Status: progress.StatusDone, Elapsed: elapsed})
		p.log.Debug("phase finished", "phase", name, "elapsed", elapsed)
	}
}

// report pushes ds into the run's error queue and lowers the min error level
// of every file they point at, filtered or not.
func (p *Pipeline) report(gs *core.GlobalState, ds []diag.Diagnostic) {
	if len(ds) == 0 {
		return
	}
	gs.Errors().PushAll(ds)
	fw := gs.UnfreezeFiles()
	defer fw.Freeze()
	for _, d := range ds {
		if d.Primary.File.IsValid() {
			fw.ObserveErrorLevel(d.Primary.File, d.Code.Level())
		}
	}
}

func (p *Pipeline) checker() func(core.View, *ast.File) ([]diag.Diagnostic, infer.Stats) {
	if p.opts.Checker == nil {
		return infer.CheckStats
	}
	check := p.opts.Checker
	return func(v core.View, f *ast.File) ([]diag.Diagnostic, infer.Stats) {
		return check(v, f), infer.Stats{}
	}
}

// ReserveFiles returns file handles for paths in input order. A path given
// twice keeps its first handle.
func ReserveFiles(gs *core.GlobalState, paths []string) []source.FileID {
	fw := gs.UnfreezeFiles()
	defer fw.Freeze()
	refs := make([]source.FileID, 0, len(paths))
	seen := make(map[source.FileID]bool, len(paths))
	for _, path := range paths {
		id := fw.Reserve(path, 0)
		if seen[id] {
			continue
		}
		seen[id] = true
		refs = append(refs, id)
	}
	return refs
}
