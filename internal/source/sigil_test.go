package source

import "testing"

func TestParseSigil(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		level StrictLevel
		found bool
		valid bool
	}{
		{name: "none", src: "class A; end\n", level: StrictNone},
		{name: "true", src: "# typed: true\nclass A; end\n", level: StrictTrue, found: true, valid: true},
		{name: "after other magic comments", src: "#!/usr/bin/env ruby\n# frozen_string_literal: true\n\n#   typed:   strict\n", level: StrictStrict, found: true, valid: true},
		{name: "below code is ignored", src: "x = 1\n# typed: true\n", level: StrictNone},
		{name: "unknown word", src: "# typed: maybe\n", level: StrictNone, found: true},
		{name: "stdlib", src: "# typed: __STDLIB_INTERNAL\n", level: StrictStdlib, found: true, valid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSigil([]byte(tt.src))
			if got.Level != tt.level || got.Found != tt.found || got.Valid != tt.valid {
				t.Fatalf("ParseSigil(%q) = %+v, want level=%v found=%v valid=%v", tt.src, got, tt.level, tt.found, tt.valid)
			}
			if got.Found && tt.src[got.Start:got.End] != got.Word {
				t.Fatalf("word span %d-%d selects %q, want %q", got.Start, got.End, tt.src[got.Start:got.End], got.Word)
			}
		})
	}
}

func TestStrictLevelEffective(t *testing.T) {
	if StrictNone.Effective() != StrictFalse {
		t.Fatalf("absent sigil should behave as false")
	}
	if StrictStrict.Effective() != StrictStrict {
		t.Fatalf("explicit sigil must be kept")
	}
	if !(StrictIgnore < StrictFalse && StrictFalse < StrictTrue && StrictTrue < StrictStrict) {
		t.Fatalf("levels must be ordered")
	}
}
