// Package group implements a cache group: local cache lookup,
// single-flight-coalesced peer fetch, loader fallback, and best-effort
// mutation broadcast to the owning peer.
package group

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/distcache/distcache/engine"
	"github.com/distcache/distcache/internal/singleflight"
	"github.com/distcache/distcache/internal/util"
)

// ErrNotFound is returned by Get when the loader ran and found nothing —
// "the key genuinely does not exist anywhere" as distinguished from a
// zero-length value.
var ErrNotFound = errors.New("group: key not found")

// Loader fetches a value for key from whatever external source the group
// fronts. absent=true means the key does not exist; it is distinguished
// from a zero-length value.
type Loader func(ctx context.Context, key string) (value []byte, absent bool, err error)

// PeerPicker resolves a key to the client for the peer that owns it, or
// ok=false if this node owns it. *peer.Picker satisfies this through the
// PeerRing adapter; it is an interface here so group can be tested
// without a real ring or client.
type PeerPicker interface {
	Pick(key string) (PeerClient, bool)
}

// PeerClient is the subset of *peer.Client a group needs. It is an
// interface, rather than *peer.Client itself, so tests can supply an
// in-memory stand-in.
type PeerClient interface {
	Get(group, key string) ([]byte, bool)
	Set(group, key string, value []byte) bool
	Delete(group, key string) bool
}

// Stats are the group's running counters, mirroring the original
// implementation's AtomicInt-based Stats struct. All fields are safe for
// concurrent use; snapshot with Snapshot().
// Stats' five counters are each updated from every Get call across every
// goroutine hitting this group; padding them to a cache line apiece keeps
// a hot increment on one counter from invalidating its neighbors' lines.
type Stats struct {
	Gets       util.PaddedAtomicInt64
	Hits       util.PaddedAtomicInt64
	PeerLoads  util.PaddedAtomicInt64
	LocalLoads util.PaddedAtomicInt64
	Errors     util.PaddedAtomicInt64
}

// StatsSnapshot is a point-in-time copy of Stats, safe to pass by value.
type StatsSnapshot struct {
	Gets, Hits, PeerLoads, LocalLoads, Errors int64
}

// Group composes a local cache, a single-flight coalescer, a peer picker,
// and a loader into a get/set/delete surface.
type Group struct {
	name   string
	loader Loader
	cache  engine.Engine[string, []byte]
	picker PeerPicker

	flight singleflight.Group[string, []byte]
	stats  Stats
	closed atomic.Bool
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]*Group)
)

// NewGroup constructs or returns the existing group named name: a
// duplicate create for an existing name returns the existing instance.
// cache may be nil only in tests that never call Get, Set or Delete.
func NewGroup(name string, cache engine.Engine[string, []byte], loader Loader, picker PeerPicker) *Group {
	registryMu.Lock()
	defer registryMu.Unlock()
	if g, ok := registry[name]; ok {
		return g
	}
	g := &Group{
		name:   name,
		loader: loader,
		cache:  cache,
		picker: picker,
	}
	registry[name] = g
	return g
}

// Lookup returns the registered group named name, if any.
func Lookup(name string) (*Group, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	g, ok := registry[name]
	return g, ok
}

// Name returns the group's registered name.
func (g *Group) Name() string { return g.name }

// Get resolves key: local hit, else a single-flight-coalesced attempt at
// the owning peer, falling back to the loader on a peer miss, failure, or
// local ownership. The first completing call for a key populates the
// local cache for every waiter.
func (g *Group) Get(ctx context.Context, key string) ([]byte, error) {
	g.stats.Gets.Add(1)

	if v, ok := g.cache.Get(key); ok {
		g.stats.Hits.Add(1)
		return v, nil
	}

	res := g.flight.Do(key, func() singleflight.Result[[]byte] {
		if g.picker != nil {
			if p, ok := g.picker.Pick(key); ok {
				if v, found := p.Get(g.name, key); found {
					g.stats.PeerLoads.Add(1)
					g.cache.Put(key, v)
					return singleflight.Result[[]byte]{Value: v}
				}
			}
		}
		return g.loadLocally(ctx, key)
	})

	if res.Err != nil {
		g.stats.Errors.Add(1)
		return nil, res.Err
	}
	if res.Absent {
		return nil, ErrNotFound
	}
	return res.Value, nil
}

func (g *Group) loadLocally(ctx context.Context, key string) singleflight.Result[[]byte] {
	g.stats.LocalLoads.Add(1)
	if g.loader == nil {
		return singleflight.Result[[]byte]{Err: ErrNotFound}
	}
	value, absent, err := g.loader(ctx, key)
	if err != nil {
		return singleflight.Result[[]byte]{Err: err}
	}
	if absent {
		return singleflight.Result[[]byte]{Absent: true}
	}
	g.cache.Put(key, value)
	return singleflight.Result[[]byte]{Value: value}
}

// Set writes key/value into the local cache unconditionally, then — if
// broadcast is true and this node is not the owner — best-effort pushes
// the write to the owning peer. The local write never waits on the
// broadcast outcome.
func (g *Group) Set(key string, value []byte, broadcast bool) {
	g.cache.Put(key, value)
	if !broadcast || g.picker == nil {
		return
	}
	if p, ok := g.picker.Pick(key); ok {
		p.Set(g.name, key, value)
	}
}

// Delete removes key from the local cache and reports whether it was
// present, then best-effort broadcasts the deletion to the owning peer.
func (g *Group) Delete(key string, broadcast bool) bool {
	existed := g.cache.Remove(key)
	if broadcast && g.picker != nil {
		if p, ok := g.picker.Pick(key); ok {
			p.Delete(g.name, key)
		}
	}
	return existed
}

// Snapshot returns a point-in-time copy of the group's counters.
func (g *Group) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Gets:       g.stats.Gets.Load(),
		Hits:       g.stats.Hits.Load(),
		PeerLoads:  g.stats.PeerLoads.Load(),
		LocalLoads: g.stats.LocalLoads.Load(),
		Errors:     g.stats.Errors.Load(),
	}
}

// InFlight reports how many distinct keys currently have a coalesced
// Get in flight against this group's loader or peer fetch.
func (g *Group) InFlight() int { return g.flight.Len() }

// Close marks the group closed. It does not evict entries or unregister
// anything by itself; the owning cache server drives coordinator
// unregistration on its own shutdown path.
func (g *Group) Close() error {
	g.closed.Store(true)
	return nil
}

// Closed reports whether Close has been called.
func (g *Group) Closed() bool { return g.closed.Load() }

// ResetRegistryForTest clears the process-wide group registry. Exported
// only for use by other packages' tests (cacheserver, gateway) that
// construct groups by name across package boundaries; production code
// never calls it.
func ResetRegistryForTest() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]*Group)
}
