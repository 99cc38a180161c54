package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"garnet/internal/ast"
	"garnet/internal/core"
	"garnet/internal/frontend"
	"garnet/internal/frontend/rubyts"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file.rb>",
	Short: "Print the lowered syntax tree of a Ruby file",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	path := args[0]
	src, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	gs := core.New()
	fw := gs.UnfreezeFiles()
	id := fw.Reserve(path, 0)
	fw.SetSource(id, src)
	fw.Freeze()

	tree, err := rubyts.New().Parse(cmd.Context(), id, src)
	var syntax *frontend.SyntaxError
	switch {
	case err == nil:
	case errors.As(err, &syntax):
		pos := gs.Files().Get(id).Position(syntax.Span.Start)
		fmt.Fprintf(cmd.ErrOrStderr(), "%s:%d:%d: %s\n", path, pos.Line, pos.Col, syntax.Msg)
	default:
		return fmt.Errorf("parse: %w", err)
	}
	if tree == nil {
		return errExit(1)
	}
	if err := ast.Dump(cmd.OutOrStdout(), tree); err != nil {
		return err
	}
	if syntax != nil {
		return errExit(1)
	}
	return nil
}
