package diagfmt

import (
	"fmt"
	"io"

	"garnet/internal/diag"
)

// Short prints one line per diagnostic: path:line:col: CODE message.
func Short(w io.Writer, ds []diag.Diagnostic, files Files, mode PathMode, baseDir string) error {
	for _, d := range ds {
		f, pos := position(files, d.Primary)
		if _, err := fmt.Fprintf(w, "%s:%d:%d: %s %s\n",
			displayPath(f, mode, baseDir), pos.Line, pos.Col, d.Code.ID(), d.Message); err != nil {
			return err
		}
	}
	return nil
}
