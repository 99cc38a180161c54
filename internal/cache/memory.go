package cache

import (
	"slices"
	"sync"
)

// MemoryStore is a per-process store for tests and embedding.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[Key][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[Key][]byte)}
}

// Get returns a copy of the stored blob.
func (c *MemoryStore) Get(key Key) ([]byte, bool, error) {
	c.mu.RLock()
	blob, ok := c.blobs[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(blob), true, nil
}

// Put stores a copy of blob.
func (c *MemoryStore) Put(key Key, blob []byte) error {
	c.mu.Lock()
	c.blobs[key] = slices.Clone(blob)
	c.mu.Unlock()
	return nil
}

// Close is a no-op; contents stay available until the store is dropped.
func (c *MemoryStore) Close() error { return nil }

// Stats reports the number of entries held.
func (c *MemoryStore) Stats() (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := Stats{Backend: string(BackendMemory), Where: "memory", Entries: len(c.blobs)}
	for _, b := range c.blobs {
		st.Bytes += int64(len(b))
	}
	return st, nil
}
