package trace

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Heartbeat emits a liveness event every interval. Each beat carries the
// last status the driver reported (phase, merged files), so a hung run shows
// where it stopped even when no span closes any more.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	status   atomic.Pointer[string]
	beats    atomic.Uint64
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// StartHeartbeat starts beating into tracer; nil when tracing is off or
// interval is not positive. All methods accept a nil *Heartbeat.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

// SetStatus replaces the status carried by later beats.
func (h *Heartbeat) SetStatus(s string) {
	if h == nil {
		return
	}
	h.status.Store(&s)
}

// Beats is how many heartbeats were emitted so far.
func (h *Heartbeat) Beats() uint64 {
	if h == nil {
		return 0
	}
	return h.beats.Load()
}

func (h *Heartbeat) loop() {
	defer close(h.done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.beat()
		case <-h.stop:
			return
		}
	}
}

func (h *Heartbeat) beat() {
	n := h.beats.Add(1)
	ev := newEvent(KindHeartbeat, ScopeDriver, "heartbeat", 0)
	ev.Detail = fmt.Sprintf("#%d", n)
	if s := h.status.Load(); s != nil {
		ev.Detail += " " + *s
	}
	h.tracer.Emit(ev)
}

// Stop ends the goroutine and waits for it. Safe to call more than once.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	<-h.done
}
