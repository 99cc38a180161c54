package source

import "testing"

func TestNormalize(t *testing.T) {
	in := []byte("\xEF\xBB\xBFa\r\nb\rc\r\n")
	out, flags := Normalize(in)
	if string(out) != "a\nb\rc\n" {
		t.Fatalf("unexpected normalized content %q", out)
	}
	if flags&FileHadBOM == 0 || flags&FileNormalizedCRLF == 0 {
		t.Fatalf("expected BOM and CRLF flags, got %b", flags)
	}

	plain := []byte("x\n")
	out, flags = Normalize(plain)
	if string(out) != "x\n" || flags != 0 {
		t.Fatalf("plain content changed: %q %b", out, flags)
	}
}

func TestToLineCol(t *testing.T) {
	content := []byte("ab\ncd\n\nef")
	idx := LineIndex(content)
	cases := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{2, LineCol{1, 3}},
		{3, LineCol{2, 1}},
		{6, LineCol{3, 1}},
		{8, LineCol{4, 2}},
	}
	for _, c := range cases {
		if got := ToLineCol(idx, c.off); got != c.want {
			t.Fatalf("ToLineCol(%d) = %+v, want %+v", c.off, got, c.want)
		}
	}
	if got := LineText(content, idx, 2); got != "cd" {
		t.Fatalf("LineText(2) = %q", got)
	}
	if got := LineText(content, idx, 4); got != "ef" {
		t.Fatalf("LineText(4) = %q", got)
	}
	if got := LineText(content, idx, 9); got != "" {
		t.Fatalf("LineText(9) = %q", got)
	}
}

func TestSpanLessAndCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 5}
	if !b.Less(a) || a.Less(b) {
		t.Fatalf("ordering by start is broken")
	}
	if c := a.Cover(b); c.Start != 2 || c.End != 8 {
		t.Fatalf("Cover = %v", c)
	}
	if c := a.Cover(Span{File: 2, Start: 0, End: 100}); c != a {
		t.Fatalf("spans of another file must not be merged")
	}
}

func TestSpanOverlaps(t *testing.T) {
	sp := func(s, e uint32) Span { return Span{File: 1, Start: s, End: e} }
	cases := []struct {
		a, b Span
		want bool
	}{
		{sp(3, 3), sp(3, 3), false},
		{sp(3, 3), sp(2, 5), true},
		{sp(2, 2), sp(2, 5), true},
		{sp(5, 5), sp(2, 5), false},
		{sp(0, 4), sp(3, 6), true},
		{sp(0, 3), sp(3, 6), false},
		{sp(0, 4), Span{File: 2, Start: 0, End: 4}, false},
	}
	for _, c := range cases {
		if got := c.a.Overlaps(c.b); got != c.want {
			t.Errorf("%v.Overlaps(%v) = %v, want %v", c.a, c.b, got, c.want)
		}
		if got := c.b.Overlaps(c.a); got != c.want {
			t.Errorf("%v.Overlaps(%v) = %v, want %v", c.b, c.a, got, c.want)
		}
	}
	if s := sp(4, 4).String(); s != "1:4" {
		t.Fatalf("point String() = %q", s)
	}
}
