package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRingKeepsLastEvents(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(ring, ScopePhase, name, "", 0)
	}
	snap := ring.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot len = %d", len(snap))
	}
	if ring.Dropped() != 2 {
		t.Fatalf("dropped = %d, want 2", ring.Dropped())
	}
	for i, want := range []string{"c", "d", "e"} {
		if snap[i].Name != want {
			t.Fatalf("snap[%d] = %q, want %q", i, snap[i].Name, want)
		}
	}
}

func TestLevelFiltersScopes(t *testing.T) {
	ring := NewRingTracer(16, LevelPhase)
	Begin(ring, ScopePhase, "index", 0).End("")
	Begin(ring, ScopeWorker, "worker", 0).End("")
	Point(ring, ScopeFile, "file", "", 0)
	for _, ev := range ring.Snapshot() {
		if ev.Scope > ScopePhase {
			t.Fatalf("event %q at scope %v passed level phase", ev.Name, ev.Scope)
		}
	}
	if got := len(ring.Snapshot()); got != 2 {
		t.Fatalf("expected begin+end of the phase span, got %d events", got)
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	sp := Begin(st, ScopePhase, "typecheck", 0).WithExtra("files", "3")
	sp.End("done")
	if buf.Len() != 0 {
		t.Fatalf("stream wrote before Flush: %q", buf.String())
	}
	if err := st.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	var end map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if end["kind"] != "end" || end["scope"] != "phase" || end["detail"] != "done" {
		t.Fatalf("end event = %v", end)
	}
}

func TestMultiTracerFansOut(t *testing.T) {
	var buf bytes.Buffer
	ring := NewRingTracer(8, LevelDebug)
	multi := NewMultiTracer(LevelDebug, NewStreamTracer(&buf, LevelDebug, FormatText), ring)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Point(multi, ScopeWorker, "tick", "", 0)
		}()
	}
	wg.Wait()
	if err := multi.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if got := len(ring.Snapshot()); got != 4 {
		t.Fatalf("ring got %d events", got)
	}
	if got := strings.Count(buf.String(), "tick"); got != 4 {
		t.Fatalf("stream got %d events:\n%s", got, buf.String())
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("missing tracer must be Nop")
	}
	ring := NewRingTracer(4, LevelPhase)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatalf("tracer not propagated")
	}
	ctx = WithSpanContext(ctx, SpanContext{SpanID: 7})
	if CurrentSpan(ctx).SpanID != 7 {
		t.Fatalf("span context lost")
	}
}

func TestNewPicksFormatByExtension(t *testing.T) {
	path := t.TempDir() + "/out.ndjson"
	tr, err := New(Config{Level: LevelPhase, Mode: ModeStream, OutputPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	st, ok := tr.(*StreamTracer)
	if !ok || st.format != FormatNDJSON {
		t.Fatalf("tracer = %#v", tr)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	off, err := New(Config{Level: LevelOff})
	if err != nil || off.Enabled() {
		t.Fatalf("off tracer = %v, %v", off, err)
	}
}

func TestFindRing(t *testing.T) {
	ring := NewRingTracer(4, LevelPhase)
	multi := NewMultiTracer(LevelPhase, NewStreamTracer(io.Discard, LevelPhase, FormatText), ring)
	if FindRing(multi) != ring {
		t.Fatalf("ring not found through multi tracer")
	}
	if FindRing(Nop) != nil {
		t.Fatalf("nop tracer has no ring")
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"": LevelOff, "PHASE": LevelPhase, " debug ": LevelDebug} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if LevelError.ShouldEmit(ScopeDriver) {
		t.Fatalf("error level records no spans")
	}
}

func TestHeartbeatCarriesStatus(t *testing.T) {
	ring := NewRingTracer(64, LevelPhase)
	hb := StartHeartbeat(ring, time.Millisecond)
	ctx := WithHeartbeat(context.Background(), hb)
	ReportStatus(ctx, "phase=%s files=%d/%d", "typecheck", 3, 9)

	deadline := time.Now().Add(5 * time.Second)
	var found bool
	for !found && time.Now().Before(deadline) {
		for _, ev := range ring.Snapshot() {
			if ev.Kind == KindHeartbeat && strings.Contains(ev.Detail, "phase=typecheck files=3/9") {
				found = true
			}
		}
		time.Sleep(time.Millisecond)
	}
	hb.Stop()
	hb.Stop()
	if !found {
		t.Fatalf("no heartbeat with status in %v", ring.Snapshot())
	}
	if hb.Beats() == 0 {
		t.Fatalf("beat counter not advanced")
	}
}

func TestHeartbeatDisabled(t *testing.T) {
	if hb := StartHeartbeat(Nop, time.Millisecond); hb != nil {
		t.Fatalf("heartbeat started on nop tracer")
	}
	var hb *Heartbeat
	hb.SetStatus("ignored")
	hb.Stop()
	// без пульса в контексте ReportStatus ничего не делает
	ReportStatus(context.Background(), "phase=%s", "index")
}
