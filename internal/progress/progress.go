// Package progress carries phase progress from the pipeline to whoever
// renders it (the terminal UI, logs, tests).
package progress

import "time"

// Stage describes a pipeline phase.
type Stage string

const (
	// StageIndex reads, parses and rewrites input files.
	StageIndex Stage = "index"
	// StageName enters definitions into the symbol table.
	StageName Stage = "name"
	// StageResolve resolves constants and linearizes ancestors.
	StageResolve Stage = "resolve"
	// StageTypecheck checks method calls.
	StageTypecheck Stage = "typecheck"
	// StageAutogen extracts autogen records.
	StageAutogen Stage = "autogen"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{StageIndex, StageName, StageResolve, StageTypecheck, StageAutogen}

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the stage has not started yet.
	StatusQueued Status = "queued"
	// StatusWorking indicates the stage is running.
	StatusWorking Status = "working"
	// StatusDone indicates the stage finished.
	StatusDone Status = "done"
	// StatusSkipped indicates the stage does not run in this mode.
	StatusSkipped Status = "skipped"
	// StatusError indicates the stage failed.
	StatusError Status = "error"
)

// Event reports progress of one stage. Done and Total count files; Total is
// zero for stages that do not fan out.
type Event struct {
	Stage   Stage
	Status  Status
	Done    int
	Total   int
	Err     error
	Elapsed time.Duration
}

// Sink consumes progress events. Implementations must be safe to call from
// the driver goroutine while a UI reads on another.
type Sink interface {
	OnEvent(Event)
}

// Emit sends ev to sink if there is one.
func Emit(sink Sink, ev Event) {
	if sink == nil {
		return
	}
	sink.OnEvent(ev)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// FuncSink adapts a function to Sink.
type FuncSink func(Event)

func (f FuncSink) OnEvent(evt Event) { f(evt) }

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
