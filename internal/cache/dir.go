package cache

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// текущая версия конверта; увеличить при изменении формата entry
const dirSchemaVersion uint16 = 1

// DirStore keeps one file per fingerprint under <dir>/blobs.
// Thread-safe for concurrent access.
type DirStore struct {
	mu  sync.RWMutex
	dir string
}

// entry is the on-disk envelope around a blob.
type entry struct {
	Schema uint16
	Key    Key
	Sum    [32]byte
	Blob   []byte
}

// OpenDirStore creates dir if needed.
func OpenDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the root directory of the store.
func (c *DirStore) Dir() string { return c.dir }

func (c *DirStore) pathFor(key Key) string {
	return filepath.Join(c.dir, "blobs", key.Fingerprint()+".mp")
}

// Put writes the blob atomically: temp file in the same directory, then rename.
func (c *DirStore) Put(key Key, blob []byte) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		// после успешного rename файла уже нет
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	enc := msgpack.NewEncoder(f)
	if err = enc.Encode(&entry{Schema: dirSchemaVersion, Key: key, Sum: sha256.Sum256(blob), Blob: blob}); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(tmp, p)
}

// Get reads the blob for key. Missing entries are (nil, false, nil).
func (c *DirStore) Get(key Key) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var e entry
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	switch {
	case e.Schema != dirSchemaVersion:
		return nil, false, fmt.Errorf("%w: schema %d", ErrCorrupt, e.Schema)
	case e.Key != key:
		return nil, false, fmt.Errorf("%w: key mismatch", ErrCorrupt)
	case sha256.Sum256(e.Blob) != e.Sum:
		return nil, false, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	return e.Blob, true, nil
}

// Close is a no-op.
func (c *DirStore) Close() error { return nil }

// Stats counts blob files.
func (c *DirStore) Stats() (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Stats{Backend: string(BackendDir), Where: c.dir}
	entries, err := os.ReadDir(filepath.Join(c.dir, "blobs"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return st, nil
		}
		return st, err
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".mp") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return st, err
		}
		st.Entries++
		st.Bytes += info.Size()
	}
	return st, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DirStore) DropAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return dropDir(c.dir)
}

// DropAll removes every cache file under dir, whatever backend wrote it.
func DropAll(dir string) error {
	return dropDir(dir)
}

func dropDir(dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	// тривиально: переименуем каталог и удалим
	old := dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(dir, old); err != nil {
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}
