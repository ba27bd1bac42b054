package testsupport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"clmeval/internal/storage"
)

// MemStore is an in-memory storage.Store that also satisfies
// storage.Locator, standing in for an S3 root in tests.
type MemStore struct {
	mu      sync.Mutex
	objects map[string]memObject
	writes  map[string]int
	now     time.Time
}

type memObject struct {
	data     []byte
	modified time.Time
}

// NewMemStore returns an empty store. Every write advances the store clock by
// one second so LastModified ordering follows write order.
func NewMemStore() *MemStore {
	return &MemStore{
		objects: make(map[string]memObject),
		writes:  make(map[string]int),
		now:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Bucket implements storage.Locator.
func (m *MemStore) Bucket() string { return "test-bucket" }

// ObjectKey implements storage.Locator.
func (m *MemStore) ObjectKey(key string) string { return "root/" + storage.CleanKey(key) }

// Read implements storage.Store.
func (m *MemStore) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[storage.CleanKey(key)]
	if !ok {
		return nil, fmt.Errorf("memstore: %s: %w", key, storage.ErrNotFound)
	}
	return append([]byte(nil), obj.data...), nil
}

// Write implements storage.Store.
func (m *MemStore) Write(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(time.Second)
	key = storage.CleanKey(key)
	m.objects[key] = memObject{data: append([]byte(nil), data...), modified: m.now}
	m.writes[key]++
	return nil
}

// List implements storage.Store.
func (m *MemStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix = storage.CleanKey(prefix)
	var out []storage.ObjectInfo
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.modified})
		}
	}
	storage.SortObjects(out)
	return out, nil
}

// URI implements storage.Store.
func (m *MemStore) URI(key string) string {
	return "s3://" + m.Bucket() + "/" + m.ObjectKey(key)
}

// Put seeds an object.
func (m *MemStore) Put(t testing.TB, key, content string) {
	t.Helper()
	_ = m.Write(context.Background(), key, []byte(content))
}

// Text returns the object at key, or "" when missing.
func (m *MemStore) Text(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.objects[storage.CleanKey(key)].data)
}

// Has reports whether key exists.
func (m *MemStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[storage.CleanKey(key)]
	return ok
}

// Writes returns how many times key was written.
func (m *MemStore) Writes(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[storage.CleanKey(key)]
}

// SeedFolders writes input/<folder>/{<folder>.txt, <folder>.mp3} objects.
func (m *MemStore) SeedFolders(t testing.TB, truths map[string]string) {
	t.Helper()
	for folder, truth := range truths {
		m.Put(t, storage.InputPrefix+folder+"/"+folder+".txt", truth)
		m.Put(t, storage.InputPrefix+folder+"/"+folder+".mp3", "ID3")
	}
}
