package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"garnet/internal/config"
	"garnet/internal/core"
	"garnet/internal/diagfmt"
	"garnet/internal/driver"
	"garnet/internal/fix"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [paths...]",
	Short: "Check Ruby files for unknown methods and arity errors",
	Long: `Check indexes every *.rb and *.rbi file under the given paths (or the
[files].include list of garnet.toml), resolves constants and ancestors, and
reports calls to methods that do not exist or get the wrong number of
arguments. Files are reported according to their # typed: sigil.`,
	RunE: runCheck,
}

func init() {
	fs := checkCmd.Flags()
	addRunFlags(fs)
	fs.StringP("e", "e", "", "check this inline source instead of (or with) files")
	fs.StringSlice("only-code", nil, "report only these diagnostic codes")
	fs.StringSlice("suppress-code", nil, "never report these diagnostic codes")
	fs.Bool("silence-errors", false, "report nothing, only the exit code")
	fs.Bool("suppress-non-critical", false, "exit 0 unless a critical error happened")
	fs.Bool("suggest-typed", false, "suggest the strictest passing # typed: sigil per file")
	fs.Int("max-diagnostics", 0, "stop recording diagnostics after this many (0 = unlimited)")
	fs.String("format", "pretty", "output format (pretty|short|json)")
	fs.String("ui", "off", "progress UI (auto|on|off)")
	fs.BoolP("autocorrect", "a", false, "apply autocorrect edits to files")
	addOutputFlags(fs)
}

// addOutputFlags registers diagnostic rendering flags.
func addOutputFlags(fs *pflag.FlagSet) {
	fs.String("path-mode", "auto", "path display (auto|absolute|relative|basename)")
	fs.Bool("with-notes", true, "include diagnostic notes in output")
	fs.Bool("fixes", false, "show autocorrect previews")
	fs.Bool("no-error-count", false, "do not print the error count line")
	fs.Bool("counters", false, "print pipeline counters to stderr")
}

// runCheck executes one check run and prints its diagnostics. The exit code
// is carried back through exitError.
func runCheck(cmd *cobra.Command, args []string) error {
	fs := cmd.Flags()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, closeStore, err := buildRunOptions(cmd, args, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var check config.Check
	if cfg != nil {
		check = cfg.Check
	}
	flags, err := runFlagsFrom(cmd, check)
	if err != nil {
		return err
	}
	opts.Flags = flags
	opts.SuggestTyped = check.SuggestTyped
	if fs.Changed("suggest-typed") {
		opts.SuggestTyped, _ = fs.GetBool("suggest-typed")
	}

	format, err := flagFormat(cmd)
	if err != nil {
		return err
	}
	uiValue, _ := fs.GetString("ui")
	mode, err := parseProgressMode(uiValue)
	if err != nil {
		return err
	}

	activeLog.Info("checking", "files", len(opts.Paths), "threads", opts.Threads)
	var res *driver.Result
	if mode.enabled(format) {
		res, err = runWithUI(cmd.Context(), "garnet check", opts)
	} else {
		res, err = driver.Run(cmd.Context(), opts)
	}
	if err != nil {
		return err
	}

	if err := printDiagnostics(cmd, cmd.OutOrStdout(), res, format); err != nil {
		return err
	}
	if err := printRunStats(cmd, res); err != nil {
		return err
	}
	if autocorrect, _ := fs.GetBool("autocorrect"); autocorrect {
		if err := applyFixes(cmd.ErrOrStderr(), res); err != nil {
			return err
		}
	}
	return errExit(res.ExitCode)
}

// applyFixes writes every reported autocorrect back to disk.
func applyFixes(out io.Writer, res *driver.Result) error {
	applied, err := fix.Apply(res.GS.Files(), res.Diagnostics)
	if errors.Is(err, fix.ErrNoFixes) {
		activeLog.Debug("autocorrect: nothing to apply", "skipped", len(applied.Skipped))
		return nil
	}
	for _, s := range applied.Skipped {
		activeLog.Warn("autocorrect skipped", "fix", s.Title, "path", s.Path, "reason", s.Reason)
	}
	if err != nil {
		return fmt.Errorf("autocorrect: %w", err)
	}
	for _, ch := range applied.FileChanges {
		fmt.Fprintf(out, "Autocorrected %s (%d edits)\n", ch.Path, ch.EditCount)
	}
	return nil
}

// runFlagsFrom merges error filters from config and flags.
func runFlagsFrom(cmd *cobra.Command, check config.Check) (core.RunFlags, error) {
	fs := cmd.Flags()
	var flags core.RunFlags
	var err error

	only := check.OnlyCodes
	if fs.Changed("only-code") {
		only, _ = fs.GetStringSlice("only-code")
	}
	if flags.Only, err = config.ParseCodes(only); err != nil {
		return flags, fmt.Errorf("--only-code: %w", err)
	}
	suppress := check.SuppressCodes
	if fs.Changed("suppress-code") {
		suppress, _ = fs.GetStringSlice("suppress-code")
	}
	if flags.Suppress, err = config.ParseCodes(suppress); err != nil {
		return flags, fmt.Errorf("--suppress-code: %w", err)
	}

	flags.MaxDiagnostics = check.MaxDiagnostics
	if fs.Changed("max-diagnostics") {
		flags.MaxDiagnostics, _ = fs.GetInt("max-diagnostics")
	}
	if flags.MaxDiagnostics < 0 {
		return flags, fmt.Errorf("--max-diagnostics must not be negative")
	}
	flags.SilenceErrors, _ = fs.GetBool("silence-errors")
	flags.SuppressNonCritical, _ = fs.GetBool("suppress-non-critical")
	return flags, nil
}

func flagFormat(cmd *cobra.Command) (diagfmt.Format, error) {
	s, err := cmd.Flags().GetString("format")
	if err != nil {
		return "", fmt.Errorf("failed to get format flag: %w", err)
	}
	return diagfmt.ParseFormat(strings.ToLower(s))
}

func printDiagnostics(cmd *cobra.Command, out io.Writer, res *driver.Result, format diagfmt.Format) error {
	fs := cmd.Flags()
	pathModeStr, _ := fs.GetString("path-mode")
	pathMode, err := diagfmt.ParsePathMode(pathModeStr)
	if err != nil {
		return err
	}
	withNotes, _ := fs.GetBool("with-notes")
	showFixes, _ := fs.GetBool("fixes")
	noCount, _ := fs.GetBool("no-error-count")
	baseDir, _ := os.Getwd()
	files := res.GS.Files()

	switch format {
	case diagfmt.FormatJSON:
		return diagfmt.JSON(out, res.Diagnostics, files, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			BaseDir:          baseDir,
			IncludeNotes:     withNotes,
			IncludeFixes:     true,
			IncludePreviews:  showFixes,
		})
	case diagfmt.FormatShort:
		if err := diagfmt.Short(out, res.Diagnostics, files, pathMode, baseDir); err != nil {
			return err
		}
	default:
		useColor, _ := resolveColor(colorFlag(cmd), os.Stdout)
		if err := diagfmt.Pretty(out, res.Diagnostics, files, diagfmt.PrettyOpts{
			Color:     useColor,
			PathMode:  pathMode,
			BaseDir:   baseDir,
			ShowNotes: withNotes,
			ShowFixes: showFixes,
		}); err != nil {
			return err
		}
	}
	if noCount {
		return nil
	}
	useColor, _ := resolveColor(colorFlag(cmd), os.Stderr)
	return diagfmt.Summary(cmd.ErrOrStderr(), res.ErrorCount, useColor)
}

func colorFlag(cmd *cobra.Command) string {
	s, _ := cmd.Root().PersistentFlags().GetString("color")
	return s
}

// printRunStats writes --timings and --counters to stderr.
func printRunStats(cmd *cobra.Command, res *driver.Result) error {
	errOut := cmd.ErrOrStderr()
	showTimings, _ := cmd.Root().PersistentFlags().GetBool("timings")
	if showTimings && res.Timer != nil {
		if _, err := io.WriteString(errOut, res.Timer.Summary()); err != nil {
			return err
		}
		if err := writeStageTimings(errOut, res.Timings); err != nil {
			return err
		}
	}
	showCounters, _ := cmd.Flags().GetBool("counters")
	if showCounters && res.Counters != nil {
		if _, err := io.WriteString(errOut, res.Counters.String()); err != nil {
			return err
		}
	}
	return nil
}
