package progress

import (
	"testing"
	"time"
)

func TestEmitToNilSinkIsNoop(t *testing.T) {
	Emit(nil, Event{Stage: StageIndex})
}

func TestChannelSink(t *testing.T) {
	ch := make(chan Event, 1)
	Emit(ChannelSink{Ch: ch}, Event{Stage: StageTypecheck, Status: StatusDone, Done: 3, Total: 3})
	ev := <-ch
	if ev.Stage != StageTypecheck || ev.Done != 3 {
		t.Fatalf("event = %+v", ev)
	}
}

func TestTimings(t *testing.T) {
	var tm Timings
	if tm.Has(StageIndex) || tm.Duration(StageIndex) != 0 {
		t.Fatalf("zero Timings must be empty")
	}
	tm.Set(StageIndex, time.Second)
	tm.Set(StageTypecheck, 2*time.Second)
	if !tm.Has(StageIndex) {
		t.Fatalf("index not recorded")
	}
	if got := tm.Sum(StageIndex, StageTypecheck, StageName); got != 3*time.Second {
		t.Fatalf("Sum = %v", got)
	}
}
