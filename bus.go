package probe

import (
	"context"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"
)

// Listener receives events of the type it was registered for.
type Listener func(ctx context.Context, ev Event)

// listenerEntry pairs a listener with a removal id and the function identity
// used by Off.
type listenerEntry struct {
	id uint64
	fn Listener
	fp uintptr
}

// Bus is a synchronous typed publish/subscribe primitive. Listeners are
// keyed by exact event type and invoked in registration order; a panicking
// listener is recovered, logged, and never stops the remaining listeners.
//
// The kernel owns one Bus per instance; the type is exported so adapters and
// tests can use the same primitive standalone.
type Bus struct {
	mu        sync.Mutex
	logger    *slog.Logger
	recovery  bool
	nextID    uint64
	listeners map[EventType][]*listenerEntry
	once      map[EventType][]*listenerEntry
}

// NewBus creates a bus. A nil logger falls back to slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger:    logger.With("component", "bus"),
		recovery:  true,
		listeners: make(map[EventType][]*listenerEntry),
		once:      make(map[EventType][]*listenerEntry),
	}
}

// setRecovery toggles panic recovery around listeners. Disabled only by
// tests that want panics to surface.
func (b *Bus) setRecovery(v bool) {
	b.mu.Lock()
	b.recovery = v
	b.mu.Unlock()
}

func (b *Bus) add(reg map[EventType][]*listenerEntry, t EventType, fn Listener) func() {
	b.mu.Lock()
	b.nextID++
	e := &listenerEntry{id: b.nextID, fn: fn, fp: reflect.ValueOf(fn).Pointer()}
	reg[t] = append(reg[t], e)
	b.mu.Unlock()

	var done sync.Once
	return func() {
		done.Do(func() {
			b.removeByID(t, e.id)
		})
	}
}

// On registers a listener for events of type t. The returned closure
// unsubscribes it; calling the closure more than once is a no-op.
func (b *Bus) On(t EventType, fn Listener) func() {
	return b.add(b.listeners, t, fn)
}

// Once registers a listener that fires at most one time, then is removed.
// The returned closure unsubscribes it before it fires; afterwards it is a
// no-op.
func (b *Bus) Once(t EventType, fn Listener) func() {
	return b.add(b.once, t, fn)
}

// Off removes fn from both the regular and once registries for type t,
// matching by function code pointer. Distinct closures created from the same
// function literal share a code pointer, so Off removes every registration
// of that literal; use the unsubscribe closure returned by On or Once to
// remove exactly one registration. Unknown handlers are ignored.
func (b *Bus) Off(t EventType, fn Listener) {
	fp := reflect.ValueOf(fn).Pointer()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[t] = dropByPointer(b.listeners[t], fp)
	b.once[t] = dropByPointer(b.once[t], fp)
}

func dropByPointer(entries []*listenerEntry, fp uintptr) []*listenerEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.fp != fp {
			out = append(out, e)
		}
	}
	return out
}

func (b *Bus) removeByID(t EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, reg := range []map[EventType][]*listenerEntry{b.listeners, b.once} {
		entries := reg[t]
		for i, e := range entries {
			if e.id == id {
				reg[t] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
	}
}

// Emit synchronously delivers ev to every listener registered for ev.Type:
// regular listeners first in registration order, then once-listeners. Each
// once-listener is claimed before invocation, so it fires at most one time
// even if a listener re-enters Emit.
func (b *Bus) Emit(ctx context.Context, ev Event) {
	b.mu.Lock()
	regular := make([]*listenerEntry, len(b.listeners[ev.Type]))
	copy(regular, b.listeners[ev.Type])
	fired := b.once[ev.Type]
	delete(b.once, ev.Type)
	recovery := b.recovery
	b.mu.Unlock()

	for _, e := range regular {
		b.invoke(ctx, e.fn, ev, recovery)
	}
	for _, e := range fired {
		b.invoke(ctx, e.fn, ev, recovery)
	}
}

func (b *Bus) invoke(ctx context.Context, fn Listener, ev Event, recovery bool) {
	if recovery {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Warn("listener panic",
					"event_type", ev.Type,
					"event_id", ev.ID,
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()
	}
	fn(ctx, ev)
}

// Clear removes all listeners of all types.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = make(map[EventType][]*listenerEntry)
	b.once = make(map[EventType][]*listenerEntry)
}

// ListenerCount returns the number of regular plus once listeners for the
// given types, or across all types when called without arguments.
func (b *Bus) ListenerCount(types ...EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(types) == 0 {
		total := 0
		for _, entries := range b.listeners {
			total += len(entries)
		}
		for _, entries := range b.once {
			total += len(entries)
		}
		return total
	}
	total := 0
	for _, t := range types {
		total += len(b.listeners[t]) + len(b.once[t])
	}
	return total
}
