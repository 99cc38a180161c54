package source

import "fmt"

// Span is a half-open byte range [Start, End) inside one file.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

// IsPoint: пустой диапазон, например место вставки.
func (s Span) IsPoint() bool { return s.Start == s.End }

func (s Span) String() string {
	if s.IsPoint() {
		return fmt.Sprintf("%d:%d", s.File, s.Start)
	}
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Contains reports whether off falls inside s. A point span contains nothing.
func (s Span) Contains(off uint32) bool { return s.Start <= off && off < s.End }

// Overlaps reports whether two spans of the same file touch the same bytes.
// A point overlaps a range when it lies strictly before the range end;
// two points never overlap.
func (s Span) Overlaps(other Span) bool {
	if s.File != other.File {
		return false
	}
	switch {
	case s.IsPoint() && other.IsPoint():
		return false
	case s.IsPoint():
		return other.Contains(s.Start)
	case other.IsPoint():
		return s.Contains(other.Start)
	}
	return s.Start < other.End && other.Start < s.End
}

// Cover extends s so that it also spans other. Spans of different files are left untouched.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	s.Start = min(s.Start, other.Start)
	s.End = max(s.End, other.End)
	return s
}

// Less orders spans by file, then start, then end.
func (s Span) Less(other Span) bool {
	if s.File != other.File {
		return s.File < other.File
	}
	if s.Start != other.Start {
		return s.Start < other.Start
	}
	return s.End < other.End
}
