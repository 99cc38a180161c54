package driver

import (
	"bytes"
	"fmt"

	"garnet/internal/core"
	"garnet/internal/diag"
	"garnet/internal/source"
)

// levelMinusOne is the highest sigil at which a file whose strictest
// diagnostic sits at lvl still reports nothing.
func levelMinusOne(lvl source.StrictLevel) source.StrictLevel {
	switch lvl {
	case source.StrictFalse:
		return source.StrictIgnore
	case source.StrictTrue:
		return source.StrictFalse
	case source.StrictStrict:
		return source.StrictTrue
	case source.StrictStrong:
		return source.StrictStrict
	case source.StrictMax:
		return source.StrictStrong
	}
	return source.StrictNone
}

// suggestTyped emits an informational diagnostic for every input file whose
// sigil differs from the highest one it would pass cleanly, with a fix that
// rewrites or inserts the sigil.
func (p *Pipeline) suggestTyped(gs *core.GlobalState, refs []source.FileID) {
	files := gs.Files()
	for _, id := range refs {
		f := files.Get(id)
		if f == nil || !f.Loaded() || f.IsPayload() {
			continue
		}
		minLevel := f.MinErrorLevel()
		if minLevel <= source.StrictIgnore {
			continue
		}
		// особые файлы (autogenerated, stdlib) не трогаем
		orig := f.Sigil().Level
		if orig > source.StrictMax {
			continue
		}
		want := min(levelMinusOne(minLevel), source.StrictStrict)
		if orig == want {
			continue
		}
		loc := sigilLoc(f, id)
		d := diag.Infof(diag.InferSuggestTyped, loc, "You could add `# typed: %s`", want).
			WithFix("Set sigil to "+want.String(), diag.FixEdit{Span: loc, NewText: fmt.Sprintf("# typed: %s\n", want)})
		gs.Errors().Push(d)
		p.counters.Inc("suggest.typed")
	}
}

// sigilLoc is the whole line of an existing sigil, or an empty span where a
// new one goes: file start, or after a shebang line.
func sigilLoc(f *core.File, id source.FileID) source.Span {
	src := f.Content()
	sig := f.Sigil()
	if !sig.Found {
		if bytes.HasPrefix(src, []byte("#!")) {
			if nl := bytes.IndexByte(src, '\n'); nl >= 0 {
				off := uint32(nl + 1) //nolint:gosec // file sizes fit uint32
				return source.Span{File: id, Start: off, End: off}
			}
		}
		return source.Span{File: id}
	}
	start := int(sig.Start)
	for start > 0 && src[start] != '#' {
		start--
	}
	end := int(sig.End)
	for end < len(src) && src[end] != '\n' {
		end++
	}
	if end < len(src) {
		end++
	}
	return source.Span{File: id, Start: uint32(start), End: uint32(end)} //nolint:gosec // file sizes fit uint32
}
