package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"garnet/internal/diag"
	"garnet/internal/source"
)

const tabWidth = 4

type palette struct {
	err, warn, info, code, path, caret, note, gutter *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		err:    mk(color.FgRed, color.Bold),
		warn:   mk(color.FgYellow, color.Bold),
		info:   mk(color.FgCyan, color.Bold),
		code:   mk(color.FgHiBlack),
		path:   mk(color.Bold),
		caret:  mk(color.FgRed, color.Bold),
		note:   mk(color.FgBlue),
		gutter: mk(color.FgHiBlack),
	}
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty форматирует диагностики в человекочитаемый вид:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// затем строка контекста с подчёркиванием ^~~~ по Span, затем Notes в том же
// формате и, по желанию, исправления с превью.
func Pretty(w io.Writer, ds []diag.Diagnostic, files Files, opts PrettyOpts) error {
	pal := newPalette(opts.Color)
	for i, d := range ds {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		var b strings.Builder
		f, pos := position(files, d.Primary)
		fmt.Fprintf(&b, "%s: %s %s: %s\n",
			pal.path.Sprintf("%s:%d:%d", displayPath(f, opts.PathMode, opts.BaseDir), pos.Line, pos.Col),
			pal.severity(d.Severity).Sprint(d.Severity.String()),
			pal.code.Sprint(d.Code.ID()),
			d.Message)
		writeSnippet(&b, files, d.Primary, pal, opts.Width)

		if opts.ShowNotes {
			for _, n := range d.Notes {
				nf, npos := position(files, n.Span)
				fmt.Fprintf(&b, "  %s %s:%d:%d: %s\n", pal.note.Sprint("note:"),
					displayPath(nf, opts.PathMode, opts.BaseDir), npos.Line, npos.Col, n.Msg)
				writeSnippet(&b, files, n.Span, pal, opts.Width)
			}
		}
		if opts.ShowFixes {
			for _, fx := range d.Fixes {
				fmt.Fprintf(&b, "  %s %s\n", pal.note.Sprint("fix:"), fx.Title)
				for _, edit := range fx.Edits {
					pv, err := buildFixEditPreview(files, edit)
					if err != nil {
						continue
					}
					for _, l := range pv.before {
						b.WriteString("    - " + l + "\n")
					}
					for _, l := range pv.after {
						b.WriteString("    + " + l + "\n")
					}
				}
			}
		}
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// writeSnippet prints the first line of sp with a caret underline. Columns
// are measured in display cells, tabs expanded.
func writeSnippet(b *strings.Builder, files Files, sp source.Span, pal palette, width int) {
	f, pos := position(files, sp)
	if f == nil || pos.Line == 0 {
		return
	}
	line := f.Line(pos.Line)
	startCol := min(int(pos.Col)-1, len(line))
	endCol := len(line)
	if end := f.Position(sp.End); end.Line == pos.Line {
		endCol = min(int(end.Col)-1, len(line))
	}
	endCol = max(endCol, startCol)

	expanded := expandTabs(line)
	pad := runewidth.StringWidth(expandTabs(line[:startCol]))
	span := max(runewidth.StringWidth(expandTabs(line[startCol:endCol])), 1)
	if width > 0 {
		expanded = runewidth.Truncate(expanded, width, "…")
	}

	gutter := fmt.Sprintf("%5d | ", pos.Line)
	b.WriteString(pal.gutter.Sprint(gutter))
	b.WriteString(expanded)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", runewidth.StringWidth(gutter)+pad))
	b.WriteString(pal.caret.Sprint("^" + strings.Repeat("~", span-1)))
	b.WriteByte('\n')
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

// Summary prints the closing error count line.
func Summary(w io.Writer, errors int, useColor bool) error {
	pal := newPalette(useColor)
	var err error
	if errors == 0 {
		_, err = fmt.Fprintln(w, "No errors! Great job.")
	} else {
		_, err = fmt.Fprintf(w, "%s %d\n", pal.err.Sprint("Errors:"), errors)
	}
	return err
}
