package diag

import (
	"testing"

	"garnet/internal/source"
)

func TestCodeLevels(t *testing.T) {
	if ParseError.Level() != source.StrictFalse {
		t.Fatalf("parse errors must be visible in typed: false files")
	}
	if InferUnknownMethod.Level() != source.StrictTrue {
		t.Fatalf("call errors require typed: true")
	}
	if InferSuggestTyped.Level() != source.StrictIgnore {
		t.Fatalf("suggestions are always shown")
	}
}

func TestParseCode(t *testing.T) {
	for _, in := range []string{"5001", "RES5001"} {
		c, err := ParseCode(in)
		if err != nil || c != ResolveStubConstant {
			t.Fatalf("ParseCode(%q) = %v, %v", in, c, err)
		}
	}
	if _, err := ParseCode("NOPE"); err == nil {
		t.Fatalf("expected error for unknown code")
	}
	if _, err := ParseCode("70000"); err == nil {
		t.Fatalf("expected range error")
	}
}

func TestBagLimitSortDedup(t *testing.T) {
	b := NewBag(3)
	b.Add(NewError(InferUnknownMethod, source.Span{File: 2, Start: 1, End: 2}, "b"))
	b.Add(NewError(ParseError, source.Span{File: 1, Start: 5, End: 6}, "a"))
	b.Add(NewError(ParseError, source.Span{File: 1, Start: 5, End: 6}, "a"))
	if b.Add(NewError(ParseError, source.Span{File: 1}, "over")) {
		t.Fatalf("limit must reject the fourth diagnostic")
	}
	if b.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", b.Dropped())
	}
	b.Sort()
	b.Dedup()
	items := b.Items()
	if len(items) != 2 || items[0].Primary.File != 1 || items[1].Primary.File != 2 {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestNilBag(t *testing.T) {
	var b *Bag
	if b.Add(NewError(ParseError, source.Span{}, "x")) || b.Len() != 0 || b.Items() != nil {
		t.Fatalf("nil bag must stay empty")
	}
}

func TestBuilders(t *testing.T) {
	base := Errorf(ResolveStubConstant, source.Span{File: 3}, "Unable to resolve constant `%s`", "Foo")
	if base.Message != "Unable to resolve constant `Foo`" || !base.IsError() {
		t.Fatalf("unexpected diagnostic %+v", base)
	}
	a := base.WithNote(source.Span{File: 3}, "first")
	b := base.WithNote(source.Span{File: 4}, "second")
	if len(base.Notes) != 0 || len(a.Notes) != 1 || len(b.Notes) != 1 || b.Notes[0].Msg != "second" {
		t.Fatalf("notes leaked between copies: %+v / %+v / %+v", base.Notes, a.Notes, b.Notes)
	}
	if got := base.WithFix("empty"); len(got.Fixes) != 0 {
		t.Fatalf("fix without edits must be dropped")
	}
	if Infof(InferSuggestTyped, source.Span{}, "x").IsError() || Warnf(DSLBadArgument, source.Span{}, "x").IsError() {
		t.Fatalf("only errors count as errors")
	}
}

func TestSeverityString(t *testing.T) {
	for sev, want := range map[Severity]string{SevInfo: "INFO", SevWarning: "WARNING", SevError: "ERROR", Severity(9): "UNKNOWN"} {
		if got := sev.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", sev, got, want)
		}
	}
}
