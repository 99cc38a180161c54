package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"garnet/internal/autogen"
	"garnet/internal/config"
	"garnet/internal/diagfmt"
	"garnet/internal/driver"
)

var autogenCmd = &cobra.Command{
	Use:   "autogen [flags] [paths...]",
	Short: "Emit definition records for code generators",
	Long: `Autogen indexes the inputs, resolves constants only, and prints the
requested artifacts: a sorted class list, a parent to subclasses map, a
readable per-file dump (strval) or per-file msgpack records.`,
	RunE: runAutogen,
}

func init() {
	fs := autogenCmd.Flags()
	addRunFlags(fs)
	fs.StringSlice("print", []string{"classlist"}, "artifacts to print (classlist|subclasses|strval|msgpack)")
	fs.StringSlice("subclasses-parent", nil, "only list subclasses of these parents")
	fs.StringSlice("ignore-absolute", nil, "skip files whose path starts with these prefixes (subclasses)")
	fs.StringSlice("ignore-relative", nil, "skip files whose path contains these segments (subclasses)")
	fs.StringP("output", "o", "", "directory for msgpack records (default: stdout)")
	addOutputFlags(fs)
}

func runAutogen(cmd *cobra.Command, args []string) error {
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

	prints, _ := fs.GetStringSlice("print")
	ag, err := autogenOptions(prints)
	if err != nil {
		return err
	}
	var acfg config.Autogen
	if cfg != nil {
		acfg = cfg.Autogen
	}
	ag.Filter = autogen.SubclassOptions{
		Parents:        stringsFlagOr(fs, "subclasses-parent", acfg.SubclassesParents),
		IgnoreAbsolute: stringsFlagOr(fs, "ignore-absolute", acfg.IgnoreAbsolute),
		IgnoreRelative: stringsFlagOr(fs, "ignore-relative", acfg.IgnoreRelative),
	}
	opts.Autogen = &ag

	res, err := driver.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}
	outDir, _ := fs.GetString("output")
	if err := writeAutogen(cmd.OutOrStdout(), res.Autogen, ag, outDir); err != nil {
		return err
	}
	// ошибки, которые autogen не терпит, всё равно показываем
	if len(res.Diagnostics) > 0 {
		if err := printDiagnostics(cmd, cmd.ErrOrStderr(), res, diagfmt.FormatShort); err != nil {
			return err
		}
	}
	if err := printRunStats(cmd, res); err != nil {
		return err
	}
	return errExit(res.ExitCode)
}

// stringsFlagOr returns the flag value when it was set, else the config value.
func stringsFlagOr(fs *pflag.FlagSet, name string, fallback []string) []string {
	if !fs.Changed(name) {
		return fallback
	}
	v, _ := fs.GetStringSlice(name)
	return v
}

func autogenOptions(prints []string) (driver.AutogenOptions, error) {
	var ag driver.AutogenOptions
	for _, p := range prints {
		switch strings.TrimSpace(strings.ToLower(p)) {
		case "classlist":
			ag.Classlist = true
		case "subclasses":
			ag.Subclasses = true
		case "strval":
			ag.Strval = true
		case "msgpack":
			ag.Msgpack = true
		default:
			return ag, fmt.Errorf("unknown --print value %q (expected classlist|subclasses|strval|msgpack)", p)
		}
	}
	return ag, nil
}

// writeAutogen prints text artifacts in a fixed order: strval, classlist,
// subclasses. Msgpack records go to outDir as NNNN.msgpack, or raw to out.
func writeAutogen(out io.Writer, res *driver.AutogenOutput, ag driver.AutogenOptions, outDir string) error {
	if res == nil {
		return nil
	}
	if ag.Strval {
		for _, s := range res.Strval {
			if _, err := io.WriteString(out, s); err != nil {
				return err
			}
		}
	}
	if ag.Classlist {
		for _, name := range res.Classlist {
			if _, err := fmt.Fprintln(out, name); err != nil {
				return err
			}
		}
	}
	if ag.Subclasses {
		if _, err := io.WriteString(out, autogen.FormatSubclasses(res.Subclasses)); err != nil {
			return err
		}
	}
	if !ag.Msgpack {
		return nil
	}
	if outDir == "" {
		for _, blob := range res.Msgpack {
			if _, err := out.Write(blob); err != nil {
				return err
			}
		}
		return nil
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("autogen output: %w", err)
	}
	for i, blob := range res.Msgpack {
		path := filepath.Join(outDir, fmt.Sprintf("%04d.msgpack", i))
		if err := os.WriteFile(path, blob, 0o600); err != nil {
			return fmt.Errorf("autogen output: %w", err)
		}
	}
	return nil
}
