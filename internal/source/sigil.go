package source

import (
	"bytes"
	"fmt"
	"strings"
)

// StrictLevel is the strictness a file opts into with its `# typed:` sigil.
// Levels are ordered: a diagnostic code is reported only in files whose
// effective level is at least the code's level.
type StrictLevel uint8

const (
	StrictNone StrictLevel = iota // no sigil
	StrictInternal
	StrictIgnore
	StrictFalse
	StrictTrue
	StrictStrict
	StrictStrong
	StrictMax
	StrictAutogenerated
	StrictStdlib
)

var strictNames = map[StrictLevel]string{
	StrictNone:          "",
	StrictInternal:      "__INTERNAL",
	StrictIgnore:        "ignore",
	StrictFalse:         "false",
	StrictTrue:          "true",
	StrictStrict:        "strict",
	StrictStrong:        "strong",
	StrictMax:           "__MAX",
	StrictAutogenerated: "autogenerated",
	StrictStdlib:        "__STDLIB_INTERNAL",
}

func (l StrictLevel) String() string {
	if s, ok := strictNames[l]; ok {
		return s
	}
	return fmt.Sprintf("StrictLevel(%d)", uint8(l))
}

// Effective maps the absent sigil to `false`, the default for unannotated files.
func (l StrictLevel) Effective() StrictLevel {
	if l == StrictNone {
		return StrictFalse
	}
	return l
}

// ParseStrictLevel converts a sigil word into a level.
func ParseStrictLevel(s string) (StrictLevel, bool) {
	for lvl, name := range strictNames {
		if name != "" && name == s {
			return lvl, true
		}
	}
	return StrictNone, false
}

// Sigil describes the `# typed:` comment of a file.
type Sigil struct {
	Level StrictLevel
	Found bool
	Valid bool   // false when the word after `typed:` is unknown
	Word  string // raw word
	Start uint32 // byte offset of Word
	End   uint32
}

const sigilPrefix = "typed:"

// ParseSigil scans the leading comment block for a `# typed: <level>` magic comment.
func ParseSigil(content []byte) Sigil {
	off := 0
	for off < len(content) {
		end := bytes.IndexByte(content[off:], '\n')
		lineEnd := len(content)
		if end >= 0 {
			lineEnd = off + end
		}
		line := content[off:lineEnd]
		trimmed := bytes.TrimLeft(line, " \t")
		switch {
		case len(trimmed) == 0:
		case trimmed[0] != '#':
			return Sigil{}
		default:
			body := bytes.TrimLeft(trimmed[1:], " \t")
			if bytes.HasPrefix(body, []byte(sigilPrefix)) {
				rest := body[len(sigilPrefix):]
				word := strings.TrimSpace(string(rest))
				if sp := strings.IndexAny(word, " \t"); sp >= 0 {
					word = word[:sp]
				}
				wordStart := off + (len(line) - len(trimmed)) + 1 + (len(trimmed) - 1 - len(body)) + len(sigilPrefix) + strings.Index(string(rest), word)
				lvl, ok := ParseStrictLevel(word)
				return Sigil{
					Level: lvl,
					Found: true,
					Valid: ok,
					Word:  word,
					Start: uint32(wordStart),
					End:   uint32(wordStart + len(word)),
				}
			}
		}
		if end < 0 {
			break
		}
		off = lineEnd + 1
	}
	return Sigil{}
}
