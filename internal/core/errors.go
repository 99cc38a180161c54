package core

import (
	"slices"
	"sync"

	"garnet/internal/diag"
	"garnet/internal/source"
)

// autogenTolerated are the codes that autogen runs swallow: autogen only needs
// the constant graph, not a clean program.
var autogenTolerated = []diag.Code{
	diag.InferUnknownMethod,
	diag.InferUnknownSingletonMethod,
	diag.InferArgumentCountMismatch,
	diag.NameRedefinitionOfMethod,
	diag.NameModuleKindRedefinition,
	diag.ResolveStubConstant,
}

// ErrorQueue collects reported diagnostics of a run. Push is safe from any
// goroutine.
type ErrorQueue struct {
	gs *GlobalState

	mu       sync.Mutex
	flags    RunFlags
	items    []diag.Diagnostic
	errors   int
	filtered int
	dropped  int // отброшено из-за MaxDiagnostics
	critical bool
}

func newErrorQueue(gs *GlobalState) *ErrorQueue {
	return &ErrorQueue{gs: gs}
}

func (q *ErrorQueue) configure(f RunFlags) {
	q.mu.Lock()
	q.flags = f
	q.mu.Unlock()
}

// IsCritical reports whether d must abort the run with the internal exit code.
func IsCritical(d diag.Diagnostic) bool {
	return d.Code == diag.InternalError
}

// Accepts reports whether d passes the run filters: code allow/deny lists,
// autogen tolerance, strictness of the file and silence mode. Critical
// diagnostics are always accepted.
func (q *ErrorQueue) Accepts(d diag.Diagnostic) bool {
	q.mu.Lock()
	f := q.flags
	q.mu.Unlock()
	return q.accepts(f, d)
}

func (q *ErrorQueue) accepts(f RunFlags, d diag.Diagnostic) bool {
	if IsCritical(d) {
		return true
	}
	if len(f.Only) > 0 && !slices.Contains(f.Only, d.Code) {
		return false
	}
	if slices.Contains(f.Suppress, d.Code) {
		return false
	}
	if f.Autogen && slices.Contains(autogenTolerated, d.Code) {
		return false
	}
	if f.SilenceErrors {
		return false
	}
	return q.strictness(d.Primary.File) >= d.Code.Level()
}

func (q *ErrorQueue) strictness(file source.FileID) source.StrictLevel {
	if fl := q.gs.Files().Get(file); fl != nil {
		return fl.Strictness()
	}
	return source.StrictFalse
}

// Push records d if it passes the filters. It returns whether d was kept.
func (q *ErrorQueue) Push(d diag.Diagnostic) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if IsCritical(d) {
		q.critical = true
	}
	if !q.accepts(q.flags, d) {
		q.filtered++
		return false
	}
	if d.IsError() {
		q.errors++
	}
	if q.flags.MaxDiagnostics > 0 && len(q.items) >= q.flags.MaxDiagnostics {
		q.dropped++
		return false
	}
	q.items = append(q.items, d)
	return true
}

// PushAll pushes every diagnostic of ds.
func (q *ErrorQueue) PushAll(ds []diag.Diagnostic) {
	for _, d := range ds {
		q.Push(d)
	}
}

// Flush emits queued diagnostics in canonical (file, position) order and
// clears the queue. Counters are kept.
func (q *ErrorQueue) Flush(fn func(diag.Diagnostic)) {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	diag.SortDiagnostics(items)
	for _, d := range items {
		fn(d)
	}
}

// Pending counts queued, not yet flushed diagnostics.
func (q *ErrorQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// ErrorCount counts accepted diagnostics of error severity.
func (q *ErrorQueue) ErrorCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.errors
}

// Filtered counts diagnostics rejected by the filters.
func (q *ErrorQueue) Filtered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.filtered
}

// Dropped counts accepted diagnostics that did not fit MaxDiagnostics.
func (q *ErrorQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// HadCritical reports whether a critical diagnostic was pushed.
func (q *ErrorQueue) HadCritical() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.critical
}
