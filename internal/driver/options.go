package driver

import (
	"time"

	"garnet/internal/ast"
	"garnet/internal/autogen"
	"garnet/internal/cache"
	"garnet/internal/core"
	"garnet/internal/counters"
	"garnet/internal/diag"
	"garnet/internal/dsl"
	"garnet/internal/frontend"
	"garnet/internal/logx"
	"garnet/internal/observ"
	"garnet/internal/payload"
	"garnet/internal/progress"
	"garnet/internal/source"
)

// Parser is the frontend contract the pipeline parses with.
type Parser = frontend.Parser

// Checker inspects one resolved file. It must not mutate global tables.
type Checker func(view core.View, file *ast.File) []diag.Diagnostic

// DefaultWaitTimeout is how long the driver waits on a result queue before it
// logs a heartbeat and checks the job again.
const DefaultWaitTimeout = time.Second

// Options is everything a run needs. The CLI fills it from flags and config;
// the driver never reads flags itself.
type Options struct {
	Paths []string
	// Inline is the `-e` source, registered as the virtual file "-e".
	Inline    string
	HasInline bool

	Threads int
	Parser  Parser
	Checker Checker // nil = infer.Check
	DSL     *dsl.Rewriter

	// Store caches the payload GlobalState; nil disables caching.
	Store         cache.Store
	EngineVersion string
	SkipDSL       bool
	// Payload overrides the embedded payload (tests).
	Payload []payload.File

	Flags        core.RunFlags
	SuggestTyped bool
	// Autogen switches the run to autogen mode when non-nil.
	Autogen *AutogenOptions
	// StoreState is a path the final GlobalState snapshot is written to.
	StoreState string

	Log         *logx.Logger
	Progress    progress.Sink
	WaitTimeout time.Duration
}

// AutogenOptions selects the autogen artifacts to produce.
type AutogenOptions struct {
	Strval     bool
	Msgpack    bool
	Classlist  bool
	Subclasses bool
	Filter     autogen.SubclassOptions
}

// AutogenOutput holds merged autogen artifacts. Strval and Msgpack are in
// input order, Classlist sorted and unique, Subclasses unioned per parent.
type AutogenOutput struct {
	Strval     []string
	Msgpack    [][]byte
	Classlist  []string
	Subclasses map[string][]string
}

// Result is the outcome of Run.
type Result struct {
	GS          *core.GlobalState
	Inputs      []source.FileID
	Files       []*ast.File
	Diagnostics []diag.Diagnostic // отсортированы, уже отфильтрованы
	ErrorCount  int
	ExitCode    int
	PayloadHit  bool
	Counters    *counters.Counters
	Timer       *observ.Timer
	Timings     progress.Timings
	Autogen     *AutogenOutput
}

// Exit codes of a run.
const (
	ExitOK       = 0
	ExitErrors   = 1
	ExitCritical = 10
)

func (o Options) namespace() string {
	if o.SkipDSL {
		return cache.NamespaceNoDSL
	}
	return cache.NamespaceDefault
}

func (o Options) waitTimeout() time.Duration {
	if o.WaitTimeout > 0 {
		return o.WaitTimeout
	}
	return DefaultWaitTimeout
}
