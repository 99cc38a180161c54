package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"garnet/internal/driver"
	"garnet/internal/progress"
	"garnet/internal/ui"
)

type runOutcome struct {
	result *driver.Result
	err    error
}

// runWithUI runs the driver on a goroutine and renders its progress events
// on stderr until the run finishes. Worker panics are re-raised here, on the
// command goroutine.
func runWithUI(ctx context.Context, title string, opts driver.Options) (*driver.Result, error) {
	events := make(chan progress.Event, 256)
	outcomeCh := make(chan runOutcome, 1)
	panicCh := make(chan any, 1)

	go func() {
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				panicCh <- r
			}
		}()
		opts.Progress = progress.ChannelSink{Ch: events}
		res, err := driver.Run(ctx, opts)
		outcomeCh <- runOutcome{result: res, err: err}
	}()

	model := ui.NewProgressModel(title, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// UI мог выйти раньше (Ctrl+C, ошибка): дочитываем события, чтобы драйвер не заблокировался
	for range events {
	}
	select {
	case r := <-panicCh:
		panic(r)
	case outcome := <-outcomeCh:
		if outcome.err == nil && uiErr != nil {
			activeLog.Warn("progress UI failed", "error", uiErr)
		}
		return outcome.result, outcome.err
	}
}
