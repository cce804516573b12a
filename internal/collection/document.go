package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/KarimYounus/jobbies/internal/storage"
)

// Document is a single JSON object stored in its own bucket, with the same
// mutate, persist, restore protocol as Collection.
type Document[T any] struct {
	bucket string
	store  storage.Service
	clone  func(T) T

	persistMu sync.Mutex
	loadErr   error // guarded by persistMu
	mu        sync.RWMutex
	value     T
}

// NewDocument returns a document holding initial until it is loaded.
func NewDocument[T any](store storage.Service, bucket string, initial T, clone func(T) T) *Document[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Document[T]{bucket: bucket, store: store, clone: clone, value: initial}
}

// Load decodes the bucket with decode and stores the result. On
// error the current value is kept and the error is returned. Errors other
// than storage.ErrNotFound block Update until a load succeeds or Unblock is
// called.
func (d *Document[T]) Load(ctx context.Context, decode func(data []byte) (T, error)) error {
	d.persistMu.Lock()
	defer d.persistMu.Unlock()

	err := d.load(ctx, decode)
	d.loadErr = nil
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		d.loadErr = err
	}
	return err
}

func (d *Document[T]) load(ctx context.Context, decode func(data []byte) (T, error)) error {
	data, err := d.store.LoadBucket(ctx, d.bucket)
	if err != nil {
		return err
	}
	v, err := decode(data)
	if err != nil {
		return &storage.DecodeError{Bucket: d.bucket, Err: err}
	}

	d.mu.Lock()
	d.value = v
	d.mu.Unlock()
	return nil
}

// Unblock allows updates after a failed load, once the caller has preserved
// the unreadable bucket.
func (d *Document[T]) Unblock() {
	d.persistMu.Lock()
	d.loadErr = nil
	d.persistMu.Unlock()
}

// Get returns a copy of the current value.
func (d *Document[T]) Get() T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.clone(d.value)
}

// Update replaces the value with fn(current) and persists it. If saving fails
// the previous value is restored. It returns the previous and the new value.
func (d *Document[T]) Update(ctx context.Context, fn func(current T) (T, error)) (old, updated T, err error) {
	d.persistMu.Lock()
	defer d.persistMu.Unlock()
	if d.loadErr != nil {
		current := d.Get()
		return current, current, fmt.Errorf("%w: %s: %v", ErrNotLoaded, d.bucket, d.loadErr)
	}

	d.mu.Lock()
	old = d.value
	updated, err = fn(d.clone(old))
	if err != nil {
		d.mu.Unlock()
		return old, old, err
	}
	d.value = updated
	d.mu.Unlock()

	if err := storage.SaveJSON(ctx, d.store, d.bucket, updated); err != nil {
		d.mu.Lock()
		d.value = old
		d.mu.Unlock()
		return old, old, fmt.Errorf("failed to save %s: %w", d.bucket, err)
	}
	return d.clone(old), d.clone(updated), nil
}
