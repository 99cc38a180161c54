package ui

import (
	"errors"
	"strings"
	"testing"

	gprogress "garnet/internal/progress"
)

func TestApplyEventUpdatesRows(t *testing.T) {
	m := NewProgressModel("garnet check", nil).(*progressModel)
	m.applyEvent(gprogress.Event{Stage: gprogress.StageIndex, Status: gprogress.StatusWorking, Done: 1, Total: 4})
	if got := m.fraction(); got != 0.25/float64(len(m.rows)) {
		t.Fatalf("unexpected fraction %v", got)
	}
	m.applyEvent(gprogress.Event{Stage: gprogress.StageIndex, Status: gprogress.StatusDone})
	m.applyEvent(gprogress.Event{Stage: gprogress.StageAutogen, Status: gprogress.StatusSkipped})
	m.applyEvent(gprogress.Event{Stage: gprogress.StageName, Status: gprogress.StatusError, Err: errors.New("boom")})
	if got := m.fraction(); got != 3/float64(len(m.rows)) {
		t.Fatalf("unexpected fraction %v", got)
	}
	row := m.rows[m.index[gprogress.StageIndex]]
	if row.done != 1 || row.total != 4 {
		t.Fatalf("counts lost: %+v", row)
	}
	view := m.View()
	if !strings.Contains(view, "boom") || !strings.Contains(view, "1/4") {
		t.Fatalf("view missing details:\n%s", view)
	}
}

func TestUnknownStageIgnored(t *testing.T) {
	m := NewProgressModel("x", nil).(*progressModel)
	if cmd := m.applyEvent(gprogress.Event{Stage: "link"}); cmd != nil {
		t.Fatalf("unknown stage produced a command")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("ab", 6); got != "ab" {
		t.Fatalf("truncate = %q", got)
	}
}
