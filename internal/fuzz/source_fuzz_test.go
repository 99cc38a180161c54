package fuzztests

import (
	"bytes"
	"testing"

	"garnet/internal/source"
)

func FuzzNormalizeIsIdempotent(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		once, _ := source.Normalize(clampInput(input))
		twice, _ := source.Normalize(once)
		if !bytes.Equal(once, twice) {
			t.Fatalf("normalize not idempotent: %q -> %q", once, twice)
		}
		idx := source.LineIndex(once)
		for i := 1; i < len(idx); i++ {
			if idx[i] <= idx[i-1] {
				t.Fatalf("line index not increasing at %d: %v", i, idx)
			}
		}
	})
}

func FuzzSigilOffsets(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		content, _ := source.Normalize(clampInput(input))
		sig := source.ParseSigil(content)
		if !sig.Found {
			return
		}
		if sig.Start > sig.End || int(sig.End) > len(content) {
			t.Fatalf("sigil span %d..%d outside %d bytes", sig.Start, sig.End, len(content))
		}
		if got := string(content[sig.Start:sig.End]); got != sig.Word {
			t.Fatalf("sigil word %q, content at span %q", sig.Word, got)
		}
		if _, ok := source.ParseStrictLevel(sig.Word); ok != sig.Valid {
			t.Fatalf("sigil %q: valid=%v, level parse=%v", sig.Word, sig.Valid, ok)
		}
	})
}
