package logx

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	lg := New(&buf, Options{Level: LevelWarn})
	lg.Info("hidden")
	lg.Warn("shown", "files", 3)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "files") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestNilLogger(t *testing.T) {
	var lg *Logger
	lg.Error("nothing happens")
	if lg.Enabled(LevelError) {
		t.Fatalf("nil logger must be disabled")
	}
}

func TestFromVerbosity(t *testing.T) {
	if FromVerbosity(0, true) != LevelWarn || FromVerbosity(2, false) != LevelTrace || FromVerbosity(0, false) != LevelInfo {
		t.Fatalf("unexpected verbosity mapping")
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected parse error")
	}
}
