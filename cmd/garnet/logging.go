package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"garnet/internal/logx"
)

// setupLogging builds the stderr logger from -v/-q/--log-json and applies
// --color to every fatih/color user.
func setupLogging(cmd *cobra.Command) (*logx.Logger, error) {
	root := cmd.Root().PersistentFlags()
	verbose, err := root.GetCount("verbose")
	if err != nil {
		return nil, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	quiet, err := root.GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	asJSON, err := root.GetBool("log-json")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-json flag: %w", err)
	}
	colorMode, err := root.GetString("color")
	if err != nil {
		return nil, fmt.Errorf("failed to get color flag: %w", err)
	}
	useColor, err := resolveColor(colorMode, os.Stdout)
	if err != nil {
		return nil, err
	}
	color.NoColor = !useColor

	return logx.New(os.Stderr, logx.Options{
		Level: logx.FromVerbosity(verbose, quiet),
		JSON:  asJSON,
	}), nil
}

func resolveColor(mode string, f *os.File) (bool, error) {
	switch mode {
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	case "auto", "":
		return isTerminal(f) && os.Getenv("NO_COLOR") == "", nil
	}
	return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
}
