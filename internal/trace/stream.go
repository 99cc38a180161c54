package trace

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sync"
)

// StreamTracer writes events through a buffer. Flush pushes them out; the CLI
// flushes at exit and after a recovered panic.
type StreamTracer struct {
	mu     sync.Mutex
	dst    io.Writer
	buf    *bufio.Writer
	level  Level
	format Format
	closed bool
}

// NewStreamTracer writes to w. FormatAuto means text.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	if format == FormatAuto {
		format = FormatText
	}
	return &StreamTracer{dst: w, buf: bufio.NewWriter(w), level: level, format: format}
}

// Emit formats ev and buffers it. Write errors are dropped: tracing never
// fails a run.
func (t *StreamTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	_, _ = t.buf.Write(data) //nolint:errcheck // best effort
	// пульс сразу на диск: по нему видно зависание
	if ev.Kind == KindHeartbeat {
		_ = t.buf.Flush() //nolint:errcheck // best effort
	}
}

// Flush writes buffered events.
func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	return t.buf.Flush()
}

// Close flushes and closes the destination unless it is stdout or stderr.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	err := t.buf.Flush()
	if c, ok := t.dst.(io.Closer); ok && t.dst != os.Stderr && t.dst != os.Stdout {
		err = errors.Join(err, c.Close())
	}
	return err
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
