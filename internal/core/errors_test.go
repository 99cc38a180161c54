package core

import (
	"sync"
	"testing"

	"garnet/internal/diag"
	"garnet/internal/source"
)

func fileWithSigil(t *testing.T, gs *GlobalState, path, src string) source.FileID {
	t.Helper()
	w := gs.UnfreezeFiles()
	defer w.Freeze()
	return w.EnterVirtual(path, []byte(src))
}

func TestErrorQueueStrictnessFilter(t *testing.T) {
	gs := New()
	loose := fileWithSigil(t, gs, "loose.rb", "# typed: false\nfoo\n")
	strict := fileWithSigil(t, gs, "strict.rb", "# typed: true\nfoo\n")
	ignored := fileWithSigil(t, gs, "ignored.rb", "# typed: ignore\nfoo\n")

	q := gs.Errors()
	if q.Push(diag.NewError(diag.InferUnknownMethod, source.Span{File: loose}, "x")) {
		t.Fatalf("typecheck error must be filtered in a typed: false file")
	}
	if !q.Push(diag.NewError(diag.InferUnknownMethod, source.Span{File: strict}, "x")) {
		t.Fatalf("typecheck error must be reported in a typed: true file")
	}
	if !q.Push(diag.NewError(diag.ResolveStubConstant, source.Span{File: loose}, "x")) {
		t.Fatalf("resolve error must be reported in a typed: false file")
	}
	if q.Push(diag.NewError(diag.ResolveStubConstant, source.Span{File: ignored}, "x")) {
		t.Fatalf("typed: ignore file must swallow resolve errors")
	}
	if q.ErrorCount() != 2 || q.Filtered() != 2 {
		t.Fatalf("counts: errors=%d filtered=%d", q.ErrorCount(), q.Filtered())
	}
}

func TestErrorQueueCodeFilters(t *testing.T) {
	gs := New()
	gs.SetFlags(RunFlags{Only: []diag.Code{diag.ResolveStubConstant}})
	q := gs.Errors()
	if q.Push(diag.NewError(diag.NameConstantReassignment, source.Span{}, "x")) {
		t.Fatalf("code outside the allow list must be dropped")
	}
	if !q.Push(diag.NewError(diag.ResolveStubConstant, source.Span{}, "x")) {
		t.Fatalf("allowed code must be kept")
	}

	gs.SetFlags(RunFlags{Suppress: []diag.Code{diag.ResolveStubConstant}})
	if q.Push(diag.NewError(diag.ResolveStubConstant, source.Span{}, "x")) {
		t.Fatalf("suppressed code must be dropped")
	}

	gs.SetFlags(RunFlags{SilenceErrors: true})
	if q.Push(diag.NewError(diag.ResolveStubConstant, source.Span{}, "x")) {
		t.Fatalf("silenced run must drop diagnostics")
	}
	if !q.Push(diag.NewError(diag.InternalError, source.Span{}, "boom")) || !q.HadCritical() {
		t.Fatalf("critical diagnostics bypass every filter")
	}
}

func TestErrorQueueConcurrentPushAndOrderedFlush(t *testing.T) {
	gs := New()
	var ids []source.FileID
	for _, p := range []string{"a.rb", "b.rb", "c.rb"} {
		ids = append(ids, fileWithSigil(t, gs, p, "# typed: true\n"))
	}
	q := gs.Errors()

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				file := ids[(w+i)%len(ids)]
				off := uint32(i) //nolint:gosec // small loop bound
				q.Push(diag.NewError(diag.ResolveStubConstant, source.Span{File: file, Start: off, End: off + 1}, "x"))
			}
		}()
	}
	wg.Wait()

	if q.Pending() != 400 {
		t.Fatalf("Pending = %d, want 400", q.Pending())
	}
	var prev *diag.Diagnostic
	n := 0
	q.Flush(func(d diag.Diagnostic) {
		if prev != nil && d.Less(*prev) {
			t.Fatalf("flush out of order: %v after %v", d.Primary, prev.Primary)
		}
		cp := d
		prev = &cp
		n++
	})
	if n != 400 || q.Pending() != 0 {
		t.Fatalf("flushed %d, pending %d", n, q.Pending())
	}
}

func TestObserveErrorLevelKeepsMinimum(t *testing.T) {
	gs := New()
	id := fileWithSigil(t, gs, "a.rb", "")
	w := gs.UnfreezeFiles()
	w.ObserveErrorLevel(id, source.StrictTrue)
	w.ObserveErrorLevel(id, source.StrictStrict)
	w.Freeze()
	if got := gs.Files().Get(id).MinErrorLevel(); got != source.StrictTrue {
		t.Fatalf("MinErrorLevel = %v", got)
	}
}
