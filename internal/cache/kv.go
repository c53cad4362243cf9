package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"stockchart/internal/storage"
)

// KV is the key-value capability the series cache is built on.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Lister is implemented by stores that can enumerate their records.
type Lister interface {
	List(ctx context.Context, prefix string) ([]storage.Entry, error)
}

type memoryRecord struct {
	value     []byte
	updatedAt time.Time
}

// MemoryKV is a process-local KV.
type MemoryKV struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

// NewMemoryKV returns an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{records: make(map[string]memoryRecord)}
}

// Get returns a copy of the value under key.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), rec.value...), true, nil
}

// Put stores a copy of value under key.
func (m *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = memoryRecord{value: append([]byte(nil), value...), updatedAt: time.Now().UTC()}
	return nil
}

// Delete removes key.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

// List returns metadata for keys starting with prefix, sorted by key.
func (m *MemoryKV) List(_ context.Context, prefix string) ([]storage.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]storage.Entry, 0, len(m.records))
	for key, rec := range m.records {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entries = append(entries, storage.Entry{Key: key, Size: len(rec.value), UpdatedAt: rec.updatedAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

var (
	_ KV     = (*MemoryKV)(nil)
	_ Lister = (*MemoryKV)(nil)
	_ KV     = (*storage.Store)(nil)
	_ Lister = (*storage.Store)(nil)
	_ KV     = (*storage.SQLiteStore)(nil)
	_ Lister = (*storage.SQLiteStore)(nil)
)
