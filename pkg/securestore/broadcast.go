package securestore

import (
	"sync"
)

// Change describes a single store mutation delivered across execution contexts.
// Origin identifies the writing store so it can suppress its own echo.
type Change struct {
	Key           string
	Value         []byte
	ChangeVersion int64
	Deleted       bool
	Origin        string
}

// Broadcast carries change notifications between execution contexts.
// Implementations must deliver each published change exactly once to every
// subscriber, including the publisher's own subscription (the store filters
// its self-echo).
type Broadcast interface {
	Publish(change Change)
	Subscribe(fn func(Change)) (cancel func())
}

// LocalBroadcast is an in-process Broadcast for stores sharing one process.
// Multiple stores over the same repository (one per logical context) attach
// to one LocalBroadcast to observe each other's writes.
type LocalBroadcast struct {
	mutex sync.RWMutex
	next  int
	subs  map[int]func(Change)
}

// NewLocalBroadcast creates a new in-process broadcast channel
func NewLocalBroadcast() *LocalBroadcast {
	return &LocalBroadcast{
		subs: make(map[int]func(Change)),
	}
}

// Publish delivers the change to every subscriber
func (b *LocalBroadcast) Publish(change Change) {
	b.mutex.RLock()
	handlers := make([]func(Change), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mutex.RUnlock()

	for _, fn := range handlers {
		fn(change)
	}
}

// Subscribe registers a handler and returns a cancel function
func (b *LocalBroadcast) Subscribe(fn func(Change)) func() {
	b.mutex.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mutex.Unlock()

	return func() {
		b.mutex.Lock()
		delete(b.subs, id)
		b.mutex.Unlock()
	}
}

// NoopBroadcast discards all changes, for single-context deployments
type NoopBroadcast struct{}

// Publish discards the change
func (NoopBroadcast) Publish(Change) {}

// Subscribe never delivers and returns a no-op cancel
func (NoopBroadcast) Subscribe(func(Change)) func() {
	return func() {}
}
