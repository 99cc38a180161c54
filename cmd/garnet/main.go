package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"garnet/internal/driver"
	"garnet/internal/logx"
	"garnet/internal/trace"
	"garnet/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "garnet",
	Short: "Whole-program static checker for Ruby",
	Long: `garnet indexes a Ruby codebase in parallel, resolves its constants and
ancestors, and reports calls to unknown methods and arity mismatches.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupRun,
	PersistentPostRun: func(*cobra.Command, []string) { runCleanup() },
}

// exitError carries a non-zero exit code out of RunE without printing.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	rootCmd.Version = version.Full()

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(autogenCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.CountP("verbose", "v", "log more (-v debug, -vv trace)")
	pf.BoolP("quiet", "q", false, "only log warnings and errors")
	pf.Bool("log-json", false, "write log records as NDJSON")
	pf.String("config", "", "path to garnet.toml (default: discovered upward)")
	pf.Bool("timings", false, "print phase timings to stderr")

	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "ring", "trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	pf.Duration("trace-heartbeat", 0, "heartbeat interval for long phases (0 = off)")

	pf.String("cpu-profile", "", "write a CPU profile to file")
	pf.String("mem-profile", "", "write a heap profile to file")
	pf.String("runtime-trace", "", "write a Go runtime trace to file")

	os.Exit(execute())
}

// execute runs the root command. Panics (broken invariants, worker panics)
// dump the trace ring and end with the critical exit code.
func execute() (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "garnet: internal error: %v\n", r)
			dumpTraceRing()
			runCleanup()
			code = driver.ExitCritical
		}
	}()

	err := rootCmd.Execute()
	runCleanup()
	if err == nil {
		return driver.ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(os.Stderr, "garnet: %v\n", err)
	return driver.ExitErrors
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits int
}

var (
	cleanups   []func()
	activeLog  *logx.Logger
	activeRing *trace.RingTracer
)

func runCleanup() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

func dumpTraceRing() {
	if activeRing == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "garnet: last trace events:")
	if err := activeRing.Dump(os.Stderr, trace.FormatText); err != nil {
		fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
	}
}

// setupRun configures logging, tracing and profiling before any command.
func setupRun(cmd *cobra.Command, _ []string) error {
	log, err := setupLogging(cmd)
	if err != nil {
		return err
	}
	activeLog = log
	if msg := version.DevMessage(os.Getenv); msg != "" && cmd.Name() != "version" {
		log.Debug(msg)
	}

	traceCleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, traceCleanup)

	profCleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, profCleanup)
	return nil
}
