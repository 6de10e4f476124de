package events

import (
	"sync"

	"escrowmarket/core/types"
)

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer holds events until the transition producing them commits. Events of
// an aborted transition are dropped with Reset.
type Buffer struct {
	pending []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.pending = append(b.pending, evt)
}

// Flush forwards every buffered event to dst in emission order and empties
// the buffer.
func (b *Buffer) Flush(dst Emitter) []Event {
	out := b.pending
	b.pending = nil
	if dst == nil {
		return out
	}
	for _, evt := range out {
		dst.Emit(evt)
	}
	return out
}

// Reset drops buffered events.
func (b *Buffer) Reset() { b.pending = nil }

// Fanout delivers every event to each registered subscriber.
type Fanout struct {
	mu   sync.RWMutex
	subs []Emitter
}

// Subscribe registers an additional receiver.
func (f *Fanout) Subscribe(sub Emitter) {
	if sub == nil {
		return
	}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
}

// Emit implements the Emitter interface.
func (f *Fanout) Emit(evt Event) {
	f.mu.RLock()
	subs := append([]Emitter(nil), f.subs...)
	f.mu.RUnlock()
	for _, sub := range subs {
		sub.Emit(evt)
	}
}
