// Package trace records what the checker pipeline is doing: phase and worker
// spans, queue-wait points and periodic heartbeats.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	garnet check --trace=- --trace-level=phase lib/
//
// # Architecture
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: buffered write to a file or stderr, flushed at exit
//   - RingTracer: circular buffer dumped on crash
//   - MultiTracer: combines multiple tracers
//
// # Levels and scopes
//
// LevelPhase emits ScopeDriver and ScopePhase events, LevelDetail adds
// ScopeWorker, LevelDebug adds ScopeFile. Heartbeats pass every level but off.
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePhase, "typecheck", parentID)
//	defer span.End("")
//
// # Heartbeat
//
// --trace-heartbeat starts a Heartbeat; the CLI stores it with WithHeartbeat
// and the driver calls ReportStatus as phases advance. Beats are written
// through to the stream immediately.
package trace
