// Package events provides the change notifications handlers publish to their listeners.
package events

import "sync"

// Kind names an event, e.g. "application-added".
type Kind string

// Event is delivered to subscribers. Payload depends on the kind; Err is set
// for error kinds.
type Event struct {
	Kind    Kind
	Payload any
	Err     error
}

// Handler receives events.
type Handler func(Event)

type subscription struct {
	id int
	fn Handler
}

// Bus is a synchronous observer list keyed by event kind. The zero value is ready to use.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Kind][]subscription
}

// Subscribe registers fn for kind and returns a func that removes it.
func (b *Bus) Subscribe(kind Kind, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs == nil {
		b.subs = make(map[Kind][]subscription)
	}
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(kind, id) })
	}
}

func (b *Bus) remove(kind Kind, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[kind]
	for i, s := range subs {
		if s.id == id {
			b.subs[kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit calls every handler subscribed to the event kind, in subscription order.
// Handlers run on the caller's goroutine and may subscribe or unsubscribe.
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[e.Kind]...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}
