package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garnet/internal/diag"
)

func write(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFull(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, `
[check]
threads = 3
cache_backend = "sqlite"
cache_dir = "cache"
only_codes = ["INF7001", "7002"]
suggest_typed = true

[files]
include = ["app", "lib"]
exclude = ["vendor"]

[autogen]
subclasses_parents = ["Base"]

[[dsl]]
method = "has_many"
script = "dsl/has_many.risor"

[extra]
knob = 1
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Check.Threads)
	assert.Equal(t, filepath.Join(dir, "cache"), cfg.CacheDir())
	assert.True(t, cfg.Check.SuggestTyped)
	assert.Equal(t, []string{"app", "lib"}, cfg.Files.Include)
	assert.Equal(t, []string{"Base"}, cfg.Autogen.SubclassesParents)
	assert.Contains(t, cfg.Unknown, "extra.knob")

	codes, err := ParseCodes(cfg.Check.OnlyCodes)
	require.NoError(t, err)
	assert.Equal(t, []diag.Code{diag.InferUnknownMethod, diag.InferArgumentCountMismatch}, codes)

	specs := cfg.PluginSpecs()
	require.Len(t, specs, 1)
	assert.Equal(t, "has_many", specs[0].Method)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"negative threads": "[check]\nthreads = -1\n",
		"bad backend":      "[check]\ncache_backend = \"redis\"\n",
		"bad code":         "[check]\nsuppress_codes = [\"nope\"]\n",
		"dsl no script":    "[[dsl]]\nmethod = \"x\"\n",
		"dsl twice":        "[[dsl]]\nmethod = \"x\"\nscript = \"a\"\n[[dsl]]\nmethod = \"x\"\nscript = \"b\"\n",
		"syntax":           "[check\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, t.TempDir(), content))
			require.Error(t, err)
		})
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	path := write(t, root, "")
	nested := filepath.Join(root, "app", "models")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	found, err := Discover(nested)
	require.NoError(t, err)
	assert.Equal(t, path, found)

	cfg, err := LoadNearest(nested)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, root, cfg.Root)
}

func TestTemplateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteTemplate(dir, false)
	require.NoError(t, err)
	_, err = WriteTemplate(dir, false)
	require.ErrorIs(t, err, ErrExists)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Unknown)
	assert.Equal(t, []string{"."}, cfg.Files.Include)
}
