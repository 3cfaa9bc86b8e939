// Package event provides a typed, synchronous listener collection.
//
// Dispatch calls every registered listener in registration order on the
// caller's goroutine. There is no queueing: a slow listener delays the ones
// after it, so listeners should hand long work off to their own goroutine.
package event

import (
	"sort"
	"sync"
)

// ListenerID identifies a registered listener for removal.
type ListenerID uint64

// Dispatcher fans a value out to a set of listeners.
// The zero value is ready to use.
type Dispatcher[T any] struct {
	mu        sync.RWMutex
	next      ListenerID
	listeners map[ListenerID]func(T)
}

// New creates an empty dispatcher.
func New[T any]() *Dispatcher[T] {
	return &Dispatcher[T]{}
}

// Add registers fn and returns its id.
func (d *Dispatcher[T]) Add(fn func(T)) ListenerID {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.listeners == nil {
		d.listeners = make(map[ListenerID]func(T))
	}
	d.next++
	d.listeners[d.next] = fn
	return d.next
}

// Remove unregisters a listener. Returns false if id was not registered.
func (d *Dispatcher[T]) Remove(id ListenerID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.listeners[id]; !ok {
		return false
	}
	delete(d.listeners, id)
	return true
}

// Subscribe registers fn and returns a func that removes it.
func (d *Dispatcher[T]) Subscribe(fn func(T)) func() {
	id := d.Add(fn)
	return func() { d.Remove(id) }
}

// Len returns the number of registered listeners.
func (d *Dispatcher[T]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners)
}

// Dispatch delivers v to all listeners in registration order.
// Listeners added or removed during dispatch take effect on the next call.
func (d *Dispatcher[T]) Dispatch(v T) {
	d.mu.RLock()
	ids := make([]ListenerID, 0, len(d.listeners))
	for id := range d.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(T), len(ids))
	for i, id := range ids {
		fns[i] = d.listeners[id]
	}
	d.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}
