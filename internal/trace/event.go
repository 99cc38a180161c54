package trace

import "time"

// Kind is what an event marks.
type Kind uint8

const (
	// KindSpanBegin opens a span.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd closes a span; Extra carries what the span counted.
	KindSpanEnd
	// KindPoint is an instant event, e.g. a timed-out queue wait.
	KindPoint
	// KindHeartbeat is the periodic liveness signal with the driver status.
	KindHeartbeat
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Scope is the granularity of an event; lower is coarser.
type Scope uint8

const (
	// ScopeDriver covers a whole check or autogen run.
	ScopeDriver Scope = iota + 1
	// ScopePhase covers one pipeline phase (index, name, resolve, typecheck, autogen).
	ScopePhase
	// ScopeWorker covers one worker's share of a fan-out phase.
	ScopeWorker
	// ScopeFile covers a single file inside a worker.
	ScopeFile
)

var scopeNames = [...]string{
	ScopeDriver: "driver",
	ScopePhase:  "phase",
	ScopeWorker: "worker",
	ScopeFile:   "file",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s] != "" {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one trace record. Seq is assigned once when the event is created,
// so a stream and a ring that both keep it agree on the order.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 для корневых
	GID      uint64
	Name     string // "typecheck", "typecheck:worker3", "queue.wait"
	Detail   string
	Extra    map[string]string
}
