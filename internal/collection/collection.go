// Package collection holds the optimistic update protocol shared by the data
// handlers: mutate in memory, persist the whole bucket, restore the previous
// state if persisting fails.
//
// Writers are serialised per bucket by a persist mutex, so at most one save is
// in flight. Readers only take the state lock and therefore observe an
// optimistic change while its save is still running.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/KarimYounus/jobbies/internal/storage"
)

var (
	// ErrDuplicateID is returned when adding an item whose id already exists.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrNotFound is returned when updating or deleting an unknown id.
	ErrNotFound = errors.New("not found")
	// ErrNotLoaded is returned by writes after a failed load, until a load
	// succeeds or Unblock is called.
	ErrNotLoaded = errors.New("bucket could not be read, refusing to overwrite it")
)

// Option configures a Collection.
type Option[T any] func(*Collection[T])

// WithClone sets the deep copy used for every value entering or leaving the
// collection. Without it values are copied by assignment.
func WithClone[T any](clone func(T) T) Option[T] {
	return func(c *Collection[T]) { c.clone = clone }
}

// WithOnChange registers fn to run after every change to the item list,
// including rollbacks. It runs with the state lock held and must not call
// back into the collection.
func WithOnChange[T any](fn func(items []T)) Option[T] {
	return func(c *Collection[T]) { c.onChange = fn }
}

// Collection is an ordered list of items with unique ids stored as one JSON
// array bucket.
type Collection[T any] struct {
	bucket   string
	store    storage.Service
	idOf     func(T) string
	clone    func(T) T
	onChange func([]T)

	persistMu sync.Mutex
	loadErr   error // guarded by persistMu
	mu        sync.RWMutex
	items     []T
}

// New returns an empty collection persisted to bucket.
func New[T any](store storage.Service, bucket string, idOf func(T) string, opts ...Option[T]) *Collection[T] {
	c := &Collection[T]{
		bucket: bucket,
		store:  store,
		idOf:   idOf,
		clone:  func(v T) T { return v },
		items:  []T{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bucket returns the bucket name.
func (c *Collection[T]) Bucket() string {
	return c.bucket
}

// Load replaces the in-memory list with the persisted one. On any error the
// list is reset to empty and the error is returned; storage.ErrNotFound means
// nothing was ever saved. Any other error blocks writes, so the empty list is
// never saved over data that is still on disk.
func (c *Collection[T]) Load(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	var loaded []T
	err := storage.LoadJSON(ctx, c.store, c.bucket, &loaded)
	if err != nil || loaded == nil {
		loaded = []T{}
	}
	c.loadErr = nil
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		c.loadErr = err
	}

	c.mu.Lock()
	c.items = loaded
	c.changed()
	c.mu.Unlock()
	return err
}

// Unblock allows writes after a failed load, once the caller has preserved
// the unreadable bucket.
func (c *Collection[T]) Unblock() {
	c.persistMu.Lock()
	c.loadErr = nil
	c.persistMu.Unlock()
}

// Blocked reports whether writes are refused because the last load failed.
func (c *Collection[T]) Blocked() bool {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	return c.loadErr != nil
}

// Snapshot returns copies of all items in order.
func (c *Collection[T]) Snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	for i, v := range c.items {
		out[i] = c.clone(v)
	}
	return out
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns a copy of the item with id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.clone(c.items[i]), true
	}
	var zero T
	return zero, false
}

// Add appends item and persists. The returned value is a copy of what was stored.
func (c *Collection[T]) Add(ctx context.Context, item T) (T, error) {
	item = c.clone(item)
	id := c.idOf(item)

	var zero T
	err := c.commit(ctx, func() (func(), error) {
		if c.indexOf(id) >= 0 {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		c.items = append(c.items, item)
		return func() { c.items = c.items[:len(c.items)-1] }, nil
	})
	if err != nil {
		return zero, err
	}
	return c.clone(item), nil
}

// Update replaces the item with the same id and persists. It returns the
// previous value.
func (c *Collection[T]) Update(ctx context.Context, item T) (T, error) {
	item = c.clone(item)
	id := c.idOf(item)

	var prev T
	err := c.commit(ctx, func() (func(), error) {
		i := c.indexOf(id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		prev = c.items[i]
		c.items[i] = item
		return func() { c.items[i] = prev }, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return c.clone(prev), nil
}

// Delete removes the item with id and persists. It returns the removed value.
func (c *Collection[T]) Delete(ctx context.Context, id string) (T, error) {
	var removed T
	err := c.commit(ctx, func() (func(), error) {
		i := c.indexOf(id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		removed = c.items[i]
		c.items = append(c.items[:i:i], c.items[i+1:]...)
		return func() {
			c.items = append(c.items[:i:i], append([]T{removed}, c.items[i:]...)...)
		}, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return c.clone(removed), nil
}

// Transform lets fn edit items in place. When fn reports a change the list is
// persisted, but a failed save does not undo the edit: the error is returned
// for the caller to log.
func (c *Collection[T]) Transform(ctx context.Context, fn func(items []T) bool) (bool, error) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if err := c.writable(); err != nil {
		return false, err
	}

	c.mu.Lock()
	if !fn(c.items) {
		c.mu.Unlock()
		return false, nil
	}
	c.changed()
	snapshot := c.copyItems()
	c.mu.Unlock()

	if err := storage.SaveJSON(ctx, c.store, c.bucket, snapshot); err != nil {
		return true, fmt.Errorf("failed to save %s: %w", c.bucket, err)
	}
	return true, nil
}

// commit runs mutate under both locks, persists the result and, when saving
// fails, runs the undo func mutate returned.
func (c *Collection[T]) commit(ctx context.Context, mutate func() (undo func(), err error)) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if err := c.writable(); err != nil {
		return err
	}

	c.mu.Lock()
	undo, err := mutate()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.changed()
	snapshot := c.copyItems()
	c.mu.Unlock()

	if err := storage.SaveJSON(ctx, c.store, c.bucket, snapshot); err != nil {
		c.mu.Lock()
		undo()
		c.changed()
		c.mu.Unlock()
		return fmt.Errorf("failed to save %s: %w", c.bucket, err)
	}
	return nil
}

func (c *Collection[T]) writable() error {
	if c.loadErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotLoaded, c.bucket, c.loadErr)
	}
	return nil
}

func (c *Collection[T]) indexOf(id string) int {
	for i, v := range c.items {
		if c.idOf(v) == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) copyItems() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T]) changed() {
	if c.onChange != nil {
		c.onChange(c.items)
	}
}
