package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrInjected is returned by MemoryStore operations configured to fail.
var ErrInjected = errors.New("injected storage failure")

// MemoryStore is a volatile Service. It backs the "memory" storage backend
// and lets tests inject failures.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string][]byte
	assets  map[string][]byte
	now     func() time.Time

	failLoad  map[string]error
	failSave  map[string]error
	failAsset error
	saves     map[string]int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets:  make(map[string][]byte),
		assets:   make(map[string][]byte),
		now:      time.Now,
		failLoad: make(map[string]error),
		failSave: make(map[string]error),
		saves:    make(map[string]int),
	}
}

// Put seeds a bucket with raw data.
func (m *MemoryStore) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[name] = append([]byte(nil), data...)
}

// Raw returns the stored bytes of a bucket.
func (m *MemoryStore) Raw(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.buckets[name]
	return append([]byte(nil), data...), ok
}

// FailLoad makes LoadBucket return err for name. A nil err clears it.
func (m *MemoryStore) FailLoad(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failLoad, name)
		return
	}
	m.failLoad[name] = err
}

// FailSave makes SaveBucket return err for name. A nil err clears it.
func (m *MemoryStore) FailSave(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failSave, name)
		return
	}
	m.failSave[name] = err
}

// FailAssets makes SaveBinaryAsset return err. A nil err clears it.
func (m *MemoryStore) FailAssets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAsset = err
}

// Saves reports how many successful saves name has received.
func (m *MemoryStore) Saves(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[name]
}

func (m *MemoryStore) LoadBucket(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLoad[name]; err != nil {
		return nil, err
	}
	data, ok := m.buckets[name]
	if !ok {
		return nil, fmt.Errorf("bucket %s: %w", name, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) SaveBucket(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failSave[name]; err != nil {
		return err
	}
	m.buckets[name] = append([]byte(nil), data...)
	m.saves[name]++
	return nil
}

func (m *MemoryStore) EnsureAssetDirs(_ context.Context) error {
	return nil
}

func (m *MemoryStore) SaveBinaryAsset(_ context.Context, category Category, originalName string, data []byte) (string, error) {
	if err := validCategory(category); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAsset != nil {
		return "", m.failAsset
	}
	key := AssetPath(category, UniqueAssetName(originalName, m.now()))
	for {
		if _, taken := m.assets[key]; !taken {
			break
		}
		key = AssetPath(category, UniqueAssetName(originalName, m.now()))
	}
	m.assets[key] = append([]byte(nil), data...)
	return key, nil
}

func (m *MemoryStore) LoadAssetAsRenderable(_ context.Context, relPath string) (string, bool) {
	key, err := cleanAssetPath(relPath)
	if err != nil {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.assets[key]
	if !ok {
		return "", false
	}
	return DataURI(data), true
}

func (m *MemoryStore) BackupBucket(_ context.Context, name, stamp string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.buckets[name]
	if !ok {
		return "", fmt.Errorf("bucket %s: %w", name, ErrNotFound)
	}
	key := backupKey(name, stamp)
	m.buckets[key] = append([]byte(nil), data...)
	return key, nil
}

// Backups lists the stored backup keys for name.
func (m *MemoryStore) Backups(name string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.buckets {
		if strings.HasPrefix(k, backupKey(name, "")) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (m *MemoryStore) Close() error {
	return nil
}
