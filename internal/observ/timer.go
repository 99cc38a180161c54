// Package observ collects phase timings of a run.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one timed pipeline phase. A phase that runs several times (name
// over the payload, then over the inputs) is folded into a single row.
type Phase struct {
	Name  string
	Runs  int
	Dur   time.Duration
	Note  string
	start time.Time
}

// Timer tracks phase durations in first-start order. Safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
	open   map[int]time.Time
	nextID int
	byName map[string]int
}

func NewTimer() *Timer {
	return &Timer{
		phases: make([]Phase, 0, 8),
		open:   make(map[int]time.Time),
		byName: make(map[string]int),
	}
}

// Begin starts a run of the named phase and returns a handle for End.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx, ok := t.byName[name]
	if !ok {
		idx = len(t.phases)
		t.phases = append(t.phases, Phase{Name: name})
		t.byName[name] = idx
	}
	t.nextID++
	handle := t.nextID<<8 | idx
	t.open[handle] = time.Now()
	return handle
}

// End finishes the run started by Begin. Unknown or reused handles are ignored.
func (t *Timer) End(handle int, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	started, ok := t.open[handle]
	if !ok {
		return
	}
	delete(t.open, handle)
	p := &t.phases[handle&0xff]
	p.Runs++
	p.Dur += time.Since(started)
	if note != "" {
		p.Note = note
	}
}

// Summary renders the --timings table.
func (t *Timer) Summary() string {
	report := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&b, "  %-20s %9.2f ms", p.Name, p.DurationMS)
		if p.Runs > 1 {
			fmt.Fprintf(&b, "  x%d", p.Runs)
		}
		if p.Note != "" {
			b.WriteString("  // " + p.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-20s %9.2f ms\n", "total", report.TotalMS)
	return b.String()
}

// PhaseReport представляет сжатую информацию о фазе таймера для сериализации.
type PhaseReport struct {
	Name       string  `json:"name"`
	Runs       int     `json:"runs"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report описывает агрегированные данные таймера.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report формирует срез завершённых фаз и общую длительность в миллисекундах.
func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	var report Report
	var total time.Duration
	for _, p := range t.phases {
		if p.Runs == 0 {
			continue
		}
		total += p.Dur
		report.Phases = append(report.Phases, PhaseReport{
			Name:       p.Name,
			Runs:       p.Runs,
			DurationMS: durationToMillis(p.Dur),
			Note:       p.Note,
		})
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
