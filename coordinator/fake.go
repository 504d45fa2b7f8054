package coordinator

import (
	"context"
	"sync"
)

// Fake is an in-memory Registrar+Membership used by tests throughout this
// module in place of a live etcd cluster, the same way the single-node
// predecessor substitutes a fakeClock for wall-clock time in its tests.
// It has no lease TTL or expiry; Unregister deletes the key immediately.
type Fake struct {
	mu        sync.Mutex
	entries   map[string]string // key -> value
	watchers  []chan Event
	service   string
	addr      string
	unregistr bool
}

// NewFake constructs an empty fake coordinator.
func NewFake() *Fake {
	return &Fake{entries: make(map[string]string)}
}

// Register implements Registrar by storing the key immediately and
// fanning out a PUT event to every active watcher.
func (f *Fake) Register(_ context.Context, service, addr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.service, f.addr = service, addr
	key := service + "/" + addr
	f.entries[key] = addr
	f.publishLocked(Event{Type: EventPut, Key: key, Value: addr})
	return nil
}

// Unregister removes the key this Fake last registered and fans out a
// DELETE event.
func (f *Fake) Unregister(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unregistr {
		return nil
	}
	f.unregistr = true
	key := f.service + "/" + f.addr
	delete(f.entries, key)
	f.publishLocked(Event{Type: EventDelete, Key: key, Value: f.addr})
	return nil
}

// List returns a snapshot of every entry whose key has the given prefix.
func (f *Fake) List(_ context.Context, prefix string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string)
	for k, v := range f.entries {
		if hasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}

// Watch returns a channel fed by every later Register, Unregister,
// PutDirect and DeleteDirect call. prefix is ignored: events for every key
// are delivered, and an event is dropped when the channel's 16-slot
// buffer is full. The channel is never closed by Watch itself;
// callers rely on their own context for lifetime control in production,
// but the Fake ignores ctx and simply leaks the channel — tests are
// expected to be short-lived.
func (f *Fake) Watch(_ context.Context, prefix string) (<-chan Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan Event, 16)
	f.watchers = append(f.watchers, ch)
	_ = prefix // the fake delivers all events; real etcd scopes by prefix server-side
	return ch, nil
}

// PutDirect lets a test simulate another node registering, independent of
// this Fake's own Register/Unregister pair.
func (f *Fake) PutDirect(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = value
	f.publishLocked(Event{Type: EventPut, Key: key, Value: value})
}

// DeleteDirect lets a test simulate another node leaving.
func (f *Fake) DeleteDirect(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value := f.entries[key]
	delete(f.entries, key)
	f.publishLocked(Event{Type: EventDelete, Key: key, Value: value})
}

func (f *Fake) publishLocked(ev Event) {
	for _, ch := range f.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
