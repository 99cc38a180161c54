package diag

import (
	"sort"

	"garnet/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

type FixEdit struct {
	Span    source.Span
	NewText string
}

// Fix is an autocorrect: a titled set of edits that can be applied together.
type Fix struct {
	Title string
	Edits []FixEdit
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []Fix
}

// Less is the canonical output order: file, start, end, severity (desc), code.
func (d Diagnostic) Less(other Diagnostic) bool {
	if d.Primary != other.Primary {
		return d.Primary.Less(other.Primary)
	}
	if d.Severity != other.Severity {
		return d.Severity > other.Severity
	}
	if d.Code != other.Code {
		return d.Code < other.Code
	}
	return d.Message < other.Message
}

// SortDiagnostics sorts ds in place into canonical output order.
func SortDiagnostics(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].Less(ds[j]) })
}
