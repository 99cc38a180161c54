package driver

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garnet/internal/cache"
	"garnet/internal/core"
	"garnet/internal/diag"
	"garnet/internal/dsl"
	"garnet/internal/payload"
	"garnet/internal/workers"
)

var testPayload = []payload.File{
	{Path: payload.Prefix + "kernel.rbi", Content: []byte("# typed: __STDLIB_INTERNAL\nmodule Kernel\ndef puts 1\nend\nend\n")},
	{Path: payload.Prefix + "class.rbi", Content: []byte("# typed: __STDLIB_INTERNAL\nclass Class < Module\ndef new 0\nend\nend\n")},
}

func writeFiles(t *testing.T, files map[string]string) (string, func(names ...string) []string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir, func(names ...string) []string {
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = filepath.Join(dir, n)
		}
		return out
	}
}

func baseOptions(parser *lineParser, paths []string) Options {
	return Options{
		Paths:         paths,
		Threads:       4,
		Parser:        parser,
		Payload:       testPayload,
		EngineVersion: "test",
	}
}

var threeFiles = map[string]string{
	"a.rb": "# typed: true\nclass A\ndef foo 1\nend\nend\n",
	"b.rb": "# typed: true\nclass B < A\ndef bar 0\ncall foo 2\nend\nend\n",
	"c.rb": "# typed: true\ncall B.new.missing 0\ncall puts 1\n",
}

func TestThreeFileScenario(t *testing.T) {
	_, paths := writeFiles(t, threeFiles)
	res, err := Run(context.Background(), baseOptions(&lineParser{}, paths("a.rb", "b.rb", "c.rb")))
	require.NoError(t, err)

	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, diag.InferArgumentCountMismatch, res.Diagnostics[0].Code)
	assert.Equal(t, res.Inputs[1], res.Diagnostics[0].Primary.File)
	assert.Contains(t, res.Diagnostics[0].Message, "`A#foo`")
	assert.Equal(t, diag.InferUnknownMethod, res.Diagnostics[1].Code)
	assert.Equal(t, res.Inputs[2], res.Diagnostics[1].Primary.File)
	assert.Equal(t, "Method `missing` does not exist on `B`", res.Diagnostics[1].Message)
	assert.Equal(t, ExitErrors, res.ExitCode)
	assert.Equal(t, 2, res.ErrorCount)
}

func TestParseAndResolveErrorsWithCleanFile(t *testing.T) {
	_, paths := writeFiles(t, map[string]string{
		"broken.rb": "# typed: true\nclass Broken\nsyntax!\n",
		"stub.rb":   "# typed: true\nclass Child < Missing\nend\n",
		"clean.rb":  "# typed: true\ncall puts 1\n",
	})
	res, err := Run(context.Background(), baseOptions(&lineParser{}, paths("broken.rb", "stub.rb", "clean.rb")))
	require.NoError(t, err)

	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, diag.ParseError, res.Diagnostics[0].Code)
	assert.Equal(t, res.Inputs[0], res.Diagnostics[0].Primary.File)
	assert.Equal(t, diag.ResolveStubConstant, res.Diagnostics[1].Code)
	assert.Equal(t, res.Inputs[1], res.Diagnostics[1].Primary.File)
	assert.Contains(t, res.Diagnostics[1].Message, "`Missing`")
	assert.Equal(t, ExitErrors, res.ExitCode)
}

func TestOrderRestoredAcrossWorkers(t *testing.T) {
	files := map[string]string{}
	var names []string
	for i := range 40 {
		name := "f" + strings.Repeat("x", i) + ".rb"
		files[name] = "# typed: true\ncall nope 0\n"
		names = append(names, name)
	}
	_, paths := writeFiles(t, files)
	opts := baseOptions(&lineParser{}, paths(names...))
	opts.Threads = 8
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, res.Files, len(names))
	for i, f := range res.Files {
		assert.Equal(t, res.Inputs[i], f.File, "tree %d out of order", i)
	}
	require.Len(t, res.Diagnostics, len(names))
	for i, d := range res.Diagnostics {
		assert.Equal(t, res.Inputs[i], d.Primary.File)
	}
}

func TestDeterministicAcrossThreadCounts(t *testing.T) {
	_, paths := writeFiles(t, threeFiles)
	var baseline []diag.Diagnostic
	for _, threads := range []int{1, 2, 3, 8, 32} {
		opts := baseOptions(&lineParser{}, paths("c.rb", "a.rb", "b.rb"))
		opts.Threads = threads
		res, err := Run(context.Background(), opts)
		require.NoError(t, err)
		if baseline == nil {
			baseline = res.Diagnostics
			continue
		}
		assert.Equal(t, baseline, res.Diagnostics, "threads=%d", threads)
	}
}

func TestEmptyRun(t *testing.T) {
	store := cache.NewMemoryStore()
	parser := &lineParser{}
	opts := baseOptions(parser, nil)
	opts.Store = store
	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, ExitOK, res.ExitCode)
	assert.Empty(t, res.Diagnostics)
	assert.Zero(t, parser.userCalls.Load())
	for _, name := range res.Counters.Names() {
		assert.False(t, strings.HasPrefix(name, "jobs."), "job %s ran on an empty input", name)
	}
}

func TestPayloadCacheHit(t *testing.T) {
	_, paths := writeFiles(t, threeFiles)
	store := cache.NewMemoryStore()
	opts := baseOptions(&lineParser{}, paths("a.rb", "b.rb", "c.rb"))
	opts.Store = store

	first, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, first.PayloadHit)
	assert.EqualValues(t, len(testPayload), first.Counters.Get("payload.files.parsed"))
	assert.EqualValues(t, 1, first.Counters.Get("cache.payload.miss"))

	second, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, second.PayloadHit)
	assert.Zero(t, second.Counters.Get("payload.files.parsed"))
	assert.EqualValues(t, 1, second.Counters.Get("cache.payload.hit"))
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
	assert.Equal(t, first.ExitCode, second.ExitCode)

	// другое пространство ключей, другой снимок
	opts.SkipDSL = true
	third, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, third.PayloadHit)
}

func TestPluginChangeMissesPayloadCache(t *testing.T) {
	_, paths := writeFiles(t, map[string]string{"use.rb": "# typed: true\ncall Widget.new.extra 0\n"})
	store := cache.NewMemoryStore()
	withWidget := append(slices.Clone(testPayload), payload.File{
		Path:    payload.Prefix + "widget.rbi",
		Content: []byte("class Widget\ncall hook 0\nend\n"),
	})
	hook, err := dsl.New([]dsl.PluginSpec{{Method: "hook", Code: `["extra"]`}}, "")
	require.NoError(t, err)

	run := func(rw *dsl.Rewriter) *Result {
		t.Helper()
		opts := baseOptions(&lineParser{}, paths("use.rb"))
		opts.Payload = withWidget
		opts.Store = store
		opts.DSL = rw
		res, err := Run(context.Background(), opts)
		require.NoError(t, err)
		return res
	}

	first := run(hook)
	assert.False(t, first.PayloadHit)
	assert.Empty(t, first.Diagnostics)

	// без плагина `extra` не существует, снимок с плагином не подходит
	second := run(nil)
	assert.False(t, second.PayloadHit)
	require.Len(t, second.Diagnostics, 1)
	assert.Equal(t, diag.InferUnknownMethod, second.Diagnostics[0].Code)

	third := run(hook)
	assert.True(t, third.PayloadHit)
	assert.Empty(t, third.Diagnostics)
}

func TestCorruptCacheEntryRebuilds(t *testing.T) {
	_, paths := writeFiles(t, threeFiles)
	store := cache.NewMemoryStore()
	opts := baseOptions(&lineParser{}, paths("a.rb"))
	opts.Store = store
	key := cache.Key{EngineVersion: "test", Namespace: cache.NamespaceDefault, Digest: payload.Digest(testPayload)}
	require.NoError(t, store.Put(key, []byte("not a snapshot")))

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, res.PayloadHit)
	assert.EqualValues(t, len(testPayload), res.Counters.Get("payload.files.parsed"))
}

func TestPerFileErrorsDoNotAbort(t *testing.T) {
	dir, paths := writeFiles(t, map[string]string{
		"bad.rb":   "# typed: true\nsyntax!\n",
		"sigil.rb": "# typed: bogus\n",
	})
	missing := filepath.Join(dir, "missing.rb")
	opts := baseOptions(&lineParser{}, append(paths("bad.rb", "sigil.rb"), missing))
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)

	codes := map[diag.Code]bool{}
	for _, d := range res.Diagnostics {
		codes[d.Code] = true
	}
	assert.True(t, codes[diag.ParseError])
	assert.True(t, codes[diag.ParseInvalidSigil])
	assert.True(t, codes[diag.ParseReadFailed])
	assert.Equal(t, ExitErrors, res.ExitCode)
}

func TestSuppressNonCriticalAndFilters(t *testing.T) {
	_, paths := writeFiles(t, threeFiles)
	opts := baseOptions(&lineParser{}, paths("a.rb", "b.rb", "c.rb"))
	opts.Flags = core.RunFlags{SuppressNonCritical: true}
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Len(t, res.Diagnostics, 2)
	assert.Equal(t, ExitOK, res.ExitCode)

	opts.Flags = core.RunFlags{Suppress: []diag.Code{diag.InferUnknownMethod}}
	res, err = Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.InferArgumentCountMismatch, res.Diagnostics[0].Code)
}

func TestSuggestTypedLowersFailingFiles(t *testing.T) {
	_, paths := writeFiles(t, map[string]string{"loose.rb": "# typed: true\ncall nope 0\n"})
	opts := baseOptions(&lineParser{}, paths("loose.rb"))
	opts.SuggestTyped = true
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 2)
	// подсказка стоит на строке сигила, раньше ошибки
	d := res.Diagnostics[0]
	assert.Equal(t, diag.InferSuggestTyped, d.Code)
	assert.Equal(t, "You could add `# typed: false`", d.Message)
	assert.Equal(t, diag.InferUnknownMethod, res.Diagnostics[1].Code)
	assert.EqualValues(t, 1, res.Counters.Get("suggest.typed"))
}

func TestFalseSigilHidesCallErrors(t *testing.T) {
	_, paths := writeFiles(t, map[string]string{"loose.rb": "# typed: false\ncall nope 0\n"})
	opts := baseOptions(&lineParser{}, paths("loose.rb"))
	opts.SuggestTyped = true
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, ExitOK, res.ExitCode)
}

func TestSuggestTypedRaisesCleanFiles(t *testing.T) {
	_, paths := writeFiles(t, map[string]string{"clean.rb": "# typed: false\nclass Clean\nend\n"})
	opts := baseOptions(&lineParser{}, paths("clean.rb"))
	opts.SuggestTyped = true
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, "You could add `# typed: strict`", d.Message)
	require.Len(t, d.Fixes, 1)
	edit := d.Fixes[0].Edits[0]
	assert.Equal(t, "# typed: strict\n", edit.NewText)
	assert.EqualValues(t, 0, edit.Span.Start)
	assert.EqualValues(t, len("# typed: false\n"), edit.Span.End)
}

func TestInlineInput(t *testing.T) {
	opts := baseOptions(&lineParser{}, nil)
	opts.Inline, opts.HasInline = "call nope 0\n", true
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, InlinePath, res.GS.Files().Get(res.Diagnostics[0].Primary.File).Path())
}

func TestAutogenMode(t *testing.T) {
	_, paths := writeFiles(t, map[string]string{
		"a.rb": "class Base\nend\nclass A < Base\ncall nope 0\nend\n",
		"b.rb": "class B < Base\nend\nclass A\nend\n",
	})
	opts := baseOptions(&lineParser{}, paths("a.rb", "b.rb"))
	opts.Autogen = &AutogenOptions{Classlist: true, Subclasses: true, Strval: true}
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, res.Autogen)
	assert.Equal(t, []string{"A", "B", "Base"}, res.Autogen.Classlist)
	assert.Equal(t, map[string][]string{"Base": {"A", "B"}}, res.Autogen.Subclasses)
	require.Len(t, res.Autogen.Strval, 2)
	assert.Contains(t, res.Autogen.Strval[0], "name=Base")
	assert.Empty(t, res.Diagnostics)
}

func TestAutogenSkipsRBIInputs(t *testing.T) {
	_, paths := writeFiles(t, map[string]string{
		"a.rb":  "class A\nend\n",
		"b.rbi": "class FromRBI < A\nend\n",
	})
	opts := baseOptions(&lineParser{}, paths("a.rb", "b.rbi"))
	opts.Autogen = &AutogenOptions{Classlist: true, Subclasses: true, Strval: true}
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, res.Autogen)
	assert.Equal(t, []string{"A"}, res.Autogen.Classlist)
	assert.Empty(t, res.Autogen.Subclasses)
	require.Len(t, res.Autogen.Strval, 1)
	assert.NotContains(t, res.Autogen.Strval[0], "FromRBI")
	assert.EqualValues(t, 1, res.Counters.Get("autogen.files.rbi_skipped"))
}

func TestStoreState(t *testing.T) {
	dir, paths := writeFiles(t, threeFiles)
	opts := baseOptions(&lineParser{}, paths("a.rb"))
	opts.StoreState = filepath.Join(dir, "state.mp")
	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	blob, err := os.ReadFile(opts.StoreState)
	require.NoError(t, err)
	gs, err := core.Decode(blob)
	require.NoError(t, err)
	_, ok := gs.Files().ByPath(paths("a.rb")[0])
	assert.True(t, ok)
}

func TestWorkerPanicIsFatal(t *testing.T) {
	_, paths := writeFiles(t, map[string]string{"boom.rb": "boom\n", "ok.rb": "class Ok\nend\n"})
	opts := baseOptions(&lineParser{panicOn: "boom"}, paths("ok.rb", "boom.rb"))
	opts.WaitTimeout = 10 * time.Millisecond

	defer func() {
		r := recover()
		_, ok := r.(*workers.WorkerPanic)
		require.True(t, ok, "expected *workers.WorkerPanic, got %#v", r)
	}()
	_, _ = Run(context.Background(), opts)
	t.Fatalf("Run returned after a worker panic")
}
