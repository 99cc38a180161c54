package diag

import (
	"fmt"

	"garnet/internal/source"
)

// New builds a diagnostic with a preformatted message.
func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

// Errorf, Warnf и Infof форматируют сообщение как fmt.Sprintf.
func Errorf(code Code, primary source.Span, format string, args ...any) Diagnostic {
	return New(SevError, code, primary, fmt.Sprintf(format, args...))
}

func Warnf(code Code, primary source.Span, format string, args ...any) Diagnostic {
	return New(SevWarning, code, primary, fmt.Sprintf(format, args...))
}

func Infof(code Code, primary source.Span, format string, args ...any) Diagnostic {
	return New(SevInfo, code, primary, fmt.Sprintf(format, args...))
}

// WithNote returns a copy of d with one more secondary location.
// Notes keep insertion order; renderers print them after the primary line.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes[:len(d.Notes):len(d.Notes)], Note{Span: sp, Msg: msg})
	return d
}

// WithFix attaches an autocorrect. A fix without edits is dropped.
func (d Diagnostic) WithFix(title string, edits ...FixEdit) Diagnostic {
	if len(edits) == 0 {
		return d
	}
	d.Fixes = append(d.Fixes[:len(d.Fixes):len(d.Fixes)], Fix{Title: title, Edits: edits})
	return d
}

// IsError reports whether d makes the run fail.
func (d Diagnostic) IsError() bool { return d.Severity.AtLeast(SevError) }
