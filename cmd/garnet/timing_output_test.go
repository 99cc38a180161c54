package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"garnet/internal/progress"
)

func TestWriteStageTimings(t *testing.T) {
	var timings progress.Timings
	timings.Set(progress.StageResolve, 3*time.Millisecond)
	timings.Set(progress.StageIndex, 1500*time.Microsecond)

	var buf bytes.Buffer
	if err := writeStageTimings(&buf, timings); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
	if !strings.Contains(lines[0], "1.5 ms") || !strings.Contains(lines[1], "3.0 ms") || !strings.Contains(lines[2], "total") || !strings.Contains(lines[2], "4.5 ms") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestWriteStageTimingsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := writeStageTimings(&buf, progress.Timings{}); err != nil || buf.Len() != 0 {
		t.Fatalf("expected no output, got %q, %v", buf.String(), err)
	}
}
