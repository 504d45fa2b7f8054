// Package gateway implements the stateless HTTP surface in front of a
// cluster: it maintains its own consistent hash ring, discovers cluster
// membership by periodically listing the coordinator, and forwards
// GET/POST/DELETE requests to the node that owns the requested key.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/distcache/distcache/coordinator"
	"github.com/distcache/distcache/peer"
	"github.com/distcache/distcache/ring"
)

// DefaultPollInterval is the default membership poll interval.
const DefaultPollInterval = 5 * time.Second

// Gateway owns a ring and a set of peer clients independent of any single
// cache node's own picker — it is its own membership observer.
type Gateway struct {
	serviceName  string
	pollInterval time.Duration

	mu      sync.RWMutex
	ring    *ring.Ring
	clients map[string]*peer.Client

	membership coordinator.Membership
	cancel     context.CancelFunc
}

// New constructs a Gateway, performs an initial membership fetch, and
// starts the background poll loop. pollInterval<=0 uses DefaultPollInterval.
func New(ctx context.Context, serviceName string, membership coordinator.Membership, r *ring.Ring, pollInterval time.Duration) (*Gateway, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	gctx, cancel := context.WithCancel(ctx)
	g := &Gateway{
		serviceName:  serviceName,
		pollInterval: pollInterval,
		ring:         r,
		clients:      make(map[string]*peer.Client),
		membership:   membership,
		cancel:       cancel,
	}
	if err := g.refresh(gctx); err != nil {
		cancel()
		return nil, err
	}
	go g.pollLoop(gctx)
	return g, nil
}

func (g *Gateway) refresh(ctx context.Context) error {
	entries, err := g.membership.List(ctx, g.serviceName+"/")
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(entries))

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, addr := range entries {
		seen[addr] = true
		if _, ok := g.clients[addr]; ok {
			continue
		}
		g.clients[addr] = peer.NewClient(addr)
		g.ring.Add(addr)
	}
	for addr, c := range g.clients {
		if seen[addr] {
			continue
		}
		c.Close()
		delete(g.clients, addr)
		g.ring.Remove(addr)
	}
	return nil
}

func (g *Gateway) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.refresh(ctx); err != nil {
				logrus.WithError(err).WithField("service", g.serviceName).Warn("gateway: membership refresh failed")
			}
		}
	}
}

// clientFor resolves key against the ring and returns the client for the
// owning node. ok=false means the ring currently has no nodes at all —
// a routing failure, reported to callers as a 500.
func (g *Gateway) clientFor(key string) (*peer.Client, bool) {
	node, ok := g.ring.Get(key)
	if !ok {
		return nil, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.clients[node]
	return c, ok
}

// Close stops the poll loop and closes every cached peer client.
func (g *Gateway) Close() error {
	g.cancel()
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.clients {
		c.Close()
	}
	return nil
}
