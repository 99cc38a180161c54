package main

import (
	"fmt"
	"os"
	"strings"

	"garnet/internal/diagfmt"
)

// progressMode decides whether check shows the bubbletea progress view.
type progressMode uint8

const (
	progressAuto progressMode = iota
	progressOn
	progressOff
)

var progressModeNames = map[string]progressMode{
	"":      progressAuto,
	"auto":  progressAuto,
	"on":    progressOn,
	"true":  progressOn,
	"off":   progressOff,
	"false": progressOff,
}

func parseProgressMode(value string) (progressMode, error) {
	if m, ok := progressModeNames[strings.ToLower(strings.TrimSpace(value))]; ok {
		return m, nil
	}
	return progressAuto, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// enabled: в auto режиме прогресс рисуется только на живом терминале,
// JSON на stdout никогда не смешивается с прогрессом.
func (m progressMode) enabled(format diagfmt.Format) bool {
	if format == diagfmt.FormatJSON {
		return false
	}
	switch m {
	case progressOn:
		return true
	case progressOff:
		return false
	}
	if os.Getenv("CI") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal(os.Stdout) && isTerminal(os.Stderr)
}
