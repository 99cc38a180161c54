package core

import (
	"fmt"
	"sync/atomic"
)

type table uint8

const (
	tableNames table = iota
	tableSymbols
	tableFiles
	tableCount
)

func (t table) String() string {
	switch t {
	case tableNames:
		return "names"
	case tableSymbols:
		return "symbols"
	case tableFiles:
		return "files"
	}
	return "unknown"
}

// Violation is raised (as a panic value) when the freeze discipline is broken:
// a second writer for a table, or a mutation through a released writer.
// It always indicates a bug in phase code.
type Violation struct {
	Table string
	Op    string
	Msg   string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("freeze discipline violated on %s table during %s: %s", v.Table, v.Op, v.Msg)
}

// token is the live-writer permit for one table.
type token struct {
	gs    *GlobalState
	table table
	live  atomic.Bool
}

func (gs *GlobalState) acquire(t table) *token {
	if !gs.unfrozen[t].CompareAndSwap(false, true) {
		panic(&Violation{Table: t.String(), Op: "unfreeze", Msg: "table is already unfrozen by another writer"})
	}
	tok := &token{gs: gs, table: t}
	tok.live.Store(true)
	return tok
}

func (tok *token) check(op string) {
	if tok == nil || !tok.live.Load() {
		tbl := "unknown"
		if tok != nil {
			tbl = tok.table.String()
		}
		panic(&Violation{Table: tbl, Op: op, Msg: "table is frozen"})
	}
}

// release is idempotent so that both `defer w.Freeze()` and an explicit early
// Freeze are fine.
func (tok *token) release() {
	if tok.live.CompareAndSwap(true, false) {
		tok.gs.unfrozen[tok.table].Store(false)
	}
}

// Frozen reports whether no writer currently holds the given table. Intended for
// assertions in tests and debug logging.
func (gs *GlobalState) frozen(t table) bool { return !gs.unfrozen[t].Load() }

// NamesFrozen reports whether the name table is currently frozen.
func (gs *GlobalState) NamesFrozen() bool { return gs.frozen(tableNames) }

// SymbolsFrozen reports whether the symbol table is currently frozen.
func (gs *GlobalState) SymbolsFrozen() bool { return gs.frozen(tableSymbols) }

// FilesFrozen reports whether the file table is currently frozen.
func (gs *GlobalState) FilesFrozen() bool { return gs.frozen(tableFiles) }
