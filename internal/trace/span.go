package trace

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

// NextSeq returns the next global event number.
func NextSeq() uint64 { return seqCounter.Add(1) }

// NextSpanID returns a fresh span ID; 0 is never returned.
func NextSpanID() uint64 { return spanCounter.Add(1) }

// goroutineID parses "goroutine N [" from the stack header. Only used to tell
// worker goroutines apart in traces.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b, ok := bytes.CutPrefix(b, []byte("goroutine "))
	if !ok {
		return 0
	}
	if sp := bytes.IndexByte(b, ' '); sp >= 0 {
		b = b[:sp]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func newEvent(kind Kind, scope Scope, name string, parent uint64) *Event {
	return &Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     kind,
		Scope:    scope,
		ParentID: parent,
		GID:      goroutineID(),
		Name:     name,
	}
}

// Span is an open Begin/End pair. A span from a disabled tracer or filtered
// scope is inert; all methods are nil-safe.
type Span struct {
	tracer  Tracer
	begin   *Event
	started time.Time
	extra   map[string]string
}

func active(t Tracer, scope Scope) bool {
	return t != nil && t.Enabled() && t.Level().ShouldEmit(scope)
}

// Begin opens a span under parent (0 for a root span).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if !active(t, scope) {
		return &Span{}
	}
	ev := newEvent(KindSpanBegin, scope, name, parent)
	ev.SpanID = NextSpanID()
	t.Emit(ev)
	return &Span{tracer: t, begin: ev, started: ev.Time}
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.begin == nil {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 2)
	}
	s.extra[key] = value
	return s
}

// End closes the span and returns its duration. Ending twice emits twice.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.begin == nil {
		return 0
	}
	ev := newEvent(KindSpanEnd, s.begin.Scope, s.begin.Name, s.begin.ParentID)
	ev.SpanID = s.begin.SpanID
	ev.Detail = detail
	ev.Extra = s.extra
	s.tracer.Emit(ev)
	return ev.Time.Sub(s.started)
}

// ID is the span ID, 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil || s.begin == nil {
		return 0
	}
	return s.begin.SpanID
}

// Point emits an instant event under parent.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	if !active(t, scope) {
		return
	}
	ev := newEvent(KindPoint, scope, name, parent)
	ev.Detail = detail
	t.Emit(ev)
}
