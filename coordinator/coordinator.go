// Package coordinator wraps the distributed coordinator (etcd) behind a
// black-box lease/watch/list interface treated as an external
// collaborator: registration keeps alive, watch and list serve
// membership discovery.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EventType distinguishes a membership put from a departure.
type EventType int

const (
	EventPut EventType = iota
	EventDelete
)

func (t EventType) String() string {
	if t == EventDelete {
		return "DELETE"
	}
	return "PUT"
}

// Event is one membership change delivered by Watch.
type Event struct {
	Type  EventType
	Key   string
	Value string
}

// Registrar is the lease-backed self-registration half of the coordinator
// interface: register under service/addr with a TTL'd lease,
// keep it alive on a timer, and unregister on shutdown.
type Registrar interface {
	Register(ctx context.Context, service, addr string) error
	Unregister(ctx context.Context) error
}

// Membership is the read side: list the current members under a prefix,
// or subscribe to a stream of (type, key, value) changes.
type Membership interface {
	List(ctx context.Context, prefix string) (map[string]string, error)
	Watch(ctx context.Context, prefix string) (<-chan Event, error)
}

const (
	// DefaultLeaseTTL and DefaultRefreshInterval match the cluster's
	// coordinator layout: TTL 10s with 5s refresh.
	DefaultLeaseTTL        = 10 * time.Second
	DefaultRefreshInterval = 5 * time.Second
	defaultDialTimeout     = 3 * time.Second
)

// Client is an etcd-backed Registrar and Membership implementation.
type Client struct {
	cli             *clientv3.Client
	leaseTTL        time.Duration
	refreshInterval time.Duration

	mu            sync.Mutex
	leaseID       clientv3.LeaseID
	stopKeepAlive chan struct{}
}

// New dials etcd at the given endpoints.
func New(endpoints []string) (*Client, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: defaultDialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		cli:             cli,
		leaseTTL:        DefaultLeaseTTL,
		refreshInterval: DefaultRefreshInterval,
	}, nil
}

// Register grants a lease, puts service/addr -> addr bound to it, and
// starts a background keep-alive loop that refreshes the lease every
// refreshInterval until Unregister is called or a refresh fails.
func (c *Client) Register(ctx context.Context, service, addr string) error {
	lease, err := c.cli.Grant(ctx, int64(c.leaseTTL.Seconds()))
	if err != nil {
		return err
	}
	key := service + "/" + addr
	if _, err := c.cli.Put(ctx, key, addr, clientv3.WithLease(lease.ID)); err != nil {
		return err
	}

	c.mu.Lock()
	c.leaseID = lease.ID
	stop := make(chan struct{})
	c.stopKeepAlive = stop
	c.mu.Unlock()

	go c.keepAliveLoop(lease.ID, stop)
	return nil
}

func (c *Client) keepAliveLoop(leaseID clientv3.LeaseID, stop chan struct{}) {
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.refreshInterval)
			_, err := c.cli.KeepAliveOnce(ctx, leaseID)
			cancel()
			if err != nil {
				logrus.WithError(err).WithField("lease", leaseID).Warn("coordinator: keep-alive failed, lease will expire naturally")
				return
			}
		}
	}
}

// Unregister stops the keep-alive loop and revokes the lease outright:
// cancel the keep-alive handle, then revoke the lease.
func (c *Client) Unregister(ctx context.Context) error {
	c.mu.Lock()
	stop := c.stopKeepAlive
	leaseID := c.leaseID
	c.stopKeepAlive = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if leaseID == 0 {
		return nil
	}
	_, err := c.cli.Revoke(ctx, leaseID)
	return err
}

// List returns every key/value pair currently stored under prefix.
func (c *Client) List(ctx context.Context, prefix string) (map[string]string, error) {
	resp, err := c.cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		out[string(kv.Key)] = string(kv.Value)
	}
	return out, nil
}

// Watch streams membership changes under prefix until ctx is cancelled.
func (c *Client) Watch(ctx context.Context, prefix string) (<-chan Event, error) {
	out := make(chan Event)
	watchChan := c.cli.Watch(ctx, prefix, clientv3.WithPrefix())
	go func() {
		defer close(out)
		for resp := range watchChan {
			for _, ev := range resp.Events {
				et := EventPut
				if ev.Type == clientv3.EventTypeDelete {
					et = EventDelete
				}
				select {
				case out <- Event{Type: et, Key: string(ev.Kv.Key), Value: string(ev.Kv.Value)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close releases the underlying etcd client connection.
func (c *Client) Close() error {
	return c.cli.Close()
}
