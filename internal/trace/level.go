package trace

import (
	"fmt"
	"strings"
)

// Level controls which scopes are recorded.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // только дамп кольца при падении
	LevelPhase        // driver + phases
	LevelDetail       // + workers
	LevelDebug        // + files
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

// deepest scope each level records; zero means nothing
var levelMaxScope = [...]Scope{
	LevelOff:    0,
	LevelError:  0,
	LevelPhase:  ScopePhase,
	LevelDetail: ScopeWorker,
	LevelDebug:  ScopeFile,
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel accepts a level name in any case; "" means off.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelOff, nil
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil //nolint:gosec // index of a 5-element table
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether events of scope pass this level. Heartbeats are
// let through separately by the sinks.
func (l Level) ShouldEmit(scope Scope) bool {
	if int(l) >= len(levelMaxScope) {
		return false
	}
	return scope != 0 && scope <= levelMaxScope[l]
}
