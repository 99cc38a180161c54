package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garnet/internal/source"
)

func testKey(ns string) Key {
	return Key{EngineVersion: "1.2.3", Namespace: ns, Digest: source.Hash([]byte("payload"))}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	ds, err := OpenDirStore(filepath.Join(dir, "dir"))
	require.NoError(t, err)
	ss, err := OpenSQLiteStore(filepath.Join(dir, "sqlite", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })
	return map[string]Store{"dir": ds, "sqlite": ss, "memory": NewMemoryStore()}
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			key := testKey(NamespaceDefault)
			_, ok, err := st.Get(key)
			require.NoError(t, err)
			assert.False(t, ok, "empty store must miss")

			require.NoError(t, st.Put(key, []byte("state-v1")))
			got, ok, err := st.Get(key)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("state-v1"), got)

			require.NoError(t, st.Put(key, []byte("state-v2")))
			got, _, _ = st.Get(key)
			assert.Equal(t, []byte("state-v2"), got, "Put must replace")

			_, ok, err = st.Get(testKey(NamespaceNoDSL))
			require.NoError(t, err)
			assert.False(t, ok, "namespaces must not collide")

			other := key
			other.EngineVersion = "9.9.9"
			_, ok, _ = st.Get(other)
			assert.False(t, ok, "engine version is part of the key")

			insp, isInsp := st.(Inspector)
			require.True(t, isInsp)
			stats, err := insp.Stats()
			require.NoError(t, err)
			assert.Equal(t, 1, stats.Entries)
		})
	}
}

func TestFingerprintSeparatesFields(t *testing.T) {
	t.Parallel()
	a := Key{EngineVersion: "1", Namespace: "ab"}
	b := Key{EngineVersion: "1a", Namespace: "b"}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)
}

func TestDirStoreCorruptEntryIsMiss(t *testing.T) {
	t.Parallel()
	ds, err := OpenDirStore(t.TempDir())
	require.NoError(t, err)
	key := testKey(NamespaceDefault)
	require.NoError(t, ds.Put(key, []byte("state")))

	require.NoError(t, os.WriteFile(ds.pathFor(key), []byte("not msgpack at all"), 0o644))
	_, ok, err := ds.Get(key)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDirStoreKeyEcho(t *testing.T) {
	t.Parallel()
	ds, err := OpenDirStore(t.TempDir())
	require.NoError(t, err)
	a, b := testKey(NamespaceDefault), testKey(NamespaceNoDSL)
	require.NoError(t, ds.Put(a, []byte("a")))

	// подменяем файл ключа b файлом ключа a
	data, err := os.ReadFile(ds.pathFor(a))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ds.pathFor(b), data, 0o644))
	_, ok, err := ds.Get(b)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDropAll(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ds, err := OpenDirStore(dir)
	require.NoError(t, err)
	key := testKey(NamespaceDefault)
	require.NoError(t, ds.Put(key, []byte("x")))
	require.NoError(t, ds.DropAll())

	_, ok, err := ds.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, ds.Put(key, []byte("y")), "store must stay usable after DropAll")
}

func TestOpenBackends(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := Open(Options{Backend: BackendNone})
	require.NoError(t, err)
	assert.Nil(t, st)

	st, err = Open(Options{Backend: BackendSQLite, Dir: dir})
	require.NoError(t, err)
	require.NoError(t, st.Close())
	assert.FileExists(t, filepath.Join(dir, "cache.db"))

	_, err = ParseBackend("redis")
	assert.Error(t, err)
}
