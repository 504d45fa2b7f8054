package peer

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/distcache/distcache/coordinator"
	"github.com/distcache/distcache/ring"
)

// Picker is the membership subscriber, ring maintainer, and peer-client
// cache. It fetches the full membership once at
// construction, then keeps the ring and client map current from a
// background watch. Pick never blocks on the network.
type Picker struct {
	selfAddr    string
	serviceName string

	mu      sync.RWMutex
	ring    *ring.Ring
	clients map[string]*Client

	cancel context.CancelFunc
}

// NewPicker constructs a Picker for serviceName. selfAddr is added to the
// ring like any other member — Pick is what turns "the ring chose me" into
// "handle locally", not membership exclusion. It fetches the current
// membership from m before returning, then starts a background watcher.
func NewPicker(ctx context.Context, serviceName, selfAddr string, m coordinator.Membership, r *ring.Ring) (*Picker, error) {
	pctx, cancel := context.WithCancel(ctx)
	p := &Picker{
		selfAddr:    selfAddr,
		serviceName: serviceName,
		ring:        r,
		clients:     make(map[string]*Client),
		cancel:      cancel,
	}

	p.mu.Lock()
	p.addLocked(selfAddr)
	p.mu.Unlock()

	prefix := serviceName + "/"
	entries, err := m.List(pctx, prefix)
	if err != nil {
		cancel()
		return nil, err
	}
	p.mu.Lock()
	for _, addr := range entries {
		p.addLocked(addr)
	}
	p.mu.Unlock()

	events, err := m.Watch(pctx, prefix)
	if err != nil {
		cancel()
		return nil, err
	}
	go p.watchLoop(pctx, events)

	return p, nil
}

// addLocked adds addr to the ring unconditionally, including selfAddr —
// the ring must be able to return this node's own address so Pick's
// self-comparison has something to compare against. A peer client is
// only created for remote addresses; this node never dials itself.
func (p *Picker) addLocked(addr string) {
	if addr == "" {
		return
	}
	p.ring.Add(addr)
	if addr == p.selfAddr {
		return
	}
	if _, ok := p.clients[addr]; ok {
		return
	}
	p.clients[addr] = NewClient(addr)
}

func (p *Picker) removeLocked(addr string) {
	if c, ok := p.clients[addr]; ok {
		c.Close()
		delete(p.clients, addr)
	}
	p.ring.Remove(addr)
}

// watchLoop applies membership events until the channel closes or ctx is
// cancelled. Watcher threads exit on watcher-close; the
// picker keeps serving with whatever membership it last observed.
func (p *Picker) watchLoop(ctx context.Context, events <-chan coordinator.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				logrus.WithField("service", p.serviceName).Warn("peer: membership watch closed, continuing with last known membership")
				return
			}
			addr := ev.Value
			if addr == "" {
				continue
			}
			p.mu.Lock()
			switch ev.Type {
			case coordinator.EventPut:
				p.addLocked(addr)
			case coordinator.EventDelete:
				p.removeLocked(addr)
			}
			p.mu.Unlock()
			logrus.WithFields(logrus.Fields{"type": ev.Type, "addr": addr}).Debug("peer: membership changed")
		}
	}
}

// Pick hashes key against the ring, which may return this node's own
// address as the owner. If it does, Pick returns ok=false to signal
// "handle locally"; otherwise it returns the cached client for the
// owning peer.
func (p *Picker) Pick(key string) (*Client, bool) {
	node, ok := p.ring.Get(key)
	if !ok {
		return nil, false
	}
	if node == p.selfAddr {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.clients[node]
	return c, ok
}

// Close stops the watcher and closes every cached peer client.
func (p *Picker) Close() error {
	p.cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, c := range p.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
