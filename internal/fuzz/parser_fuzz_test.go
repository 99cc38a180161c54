package fuzztests

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"garnet/internal/ast"
	"garnet/internal/frontend"
	"garnet/internal/frontend/rubyts"
	"garnet/internal/source"
)

// parseTimeout is the maximum time allowed for parsing a single input.
// If parsing takes longer, it indicates a potential infinite loop.
const parseTimeout = 5 * time.Second

func FuzzParserBuildsTree(f *testing.F) {
	addCorpusSeeds(f)
	p := rubyts.New()
	f.Fuzz(func(t *testing.T, input []byte) {
		content, _ := source.Normalize(clampInput(input))
		file, err := p.Parse(context.Background(), 1, content)
		var syntaxErr *frontend.SyntaxError
		if err != nil && !errors.As(err, &syntaxErr) {
			t.Fatalf("unexpected parser error: %v", err)
		}
		if syntaxErr != nil && int(syntaxErr.Span.End) > len(content) {
			t.Fatalf("syntax error span %v outside %d bytes", syntaxErr.Span, len(content))
		}
		if file == nil {
			return
		}
		if err := ast.Dump(io.Discard, file); err != nil {
			t.Fatalf("dump: %v", err)
		}
	})
}

// FuzzParserNoHang tests that the parser finishes on any input, including
// inputs that stress error recovery.
func FuzzParserNoHang(f *testing.F) {
	addCorpusSeeds(f)

	f.Add([]byte("class A; def foo(; end"))
	f.Add([]byte("module ::\nend end end"))
	f.Add([]byte("a.b.c.d.e.f(g(h(i(j(k)))))"))
	f.Add([]byte("class << class << self; end; end"))
	f.Add([]byte("X = Y = Z = ::W::V"))

	p := rubyts.New()
	f.Fuzz(func(t *testing.T, input []byte) {
		content, _ := source.Normalize(clampInput(input))

		ctx, cancel := context.WithTimeout(context.Background(), parseTimeout)
		defer cancel()
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = p.Parse(ctx, 1, content)
		}()

		select {
		case <-done:
		case <-time.After(parseTimeout):
			t.Fatalf("parser hung on input of %d bytes (possible infinite loop)", len(input))
		}
	})
}
