package peer

import (
	"fmt"
	"net"
	"net/rpc"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// callDeadline bounds every RPC ("per-call deadline: 3
// seconds"). There is no retry — retries are a caller-layer concern.
const callDeadline = 3 * time.Second

// Client encapsulates an RPC channel to a single remote node. It dials
// lazily on first use and redials after any failed call.
type Client struct {
	addr string

	mu  sync.Mutex
	rpc *rpc.Client
}

// NewClient constructs a client for the given node address. No network
// I/O happens until the first call.
func NewClient(addr string) *Client {
	return &Client{addr: addr}
}

func (c *Client) connLocked() (*rpc.Client, error) {
	if c.rpc != nil {
		return c.rpc, nil
	}
	conn, err := net.DialTimeout("tcp", c.addr, callDeadline)
	if err != nil {
		return nil, err
	}
	c.rpc = rpc.NewClient(conn)
	return c.rpc, nil
}

func (c *Client) call(serviceMethod string, args, reply any) error {
	c.mu.Lock()
	client, err := c.connLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}

	done := make(chan *rpc.Call, 1)
	call := client.Go(serviceMethod, args, reply, done)
	select {
	case <-call.Done:
		if call.Error != nil {
			c.dropConn()
			return call.Error
		}
		return nil
	case <-time.After(callDeadline):
		c.dropConn()
		return fmt.Errorf("peer: call %s to %s timed out after %s", serviceMethod, c.addr, callDeadline)
	}
}

func (c *Client) dropConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpc != nil {
		c.rpc.Close()
		c.rpc = nil
	}
}

// Get fetches group/key from the remote node. On transport failure it
// logs and returns ⊥ (found=false) — callers fall back to the loader.
func (c *Client) Get(group, key string) (value []byte, found bool) {
	var resp GetResponse
	if err := c.call("CacheServer.Get", &GetRequest{Group: group, Key: key}, &resp); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"peer": c.addr, "group": group}).Warn("peer: get failed")
		return nil, false
	}
	return resp.Value, resp.Found
}

// Set pushes group/key/value to the remote node. On transport failure it
// logs and returns false.
func (c *Client) Set(group, key string, value []byte) bool {
	var resp SetResponse
	if err := c.call("CacheServer.Set", &SetRequest{Group: group, Key: key, Value: value}, &resp); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"peer": c.addr, "group": group}).Warn("peer: set failed")
		return false
	}
	return resp.OK
}

// Delete removes group/key on the remote node. On transport failure it
// logs and returns false.
func (c *Client) Delete(group, key string) bool {
	var resp DeleteResponse
	if err := c.call("CacheServer.Delete", &DeleteRequest{Group: group, Key: key}, &resp); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"peer": c.addr, "group": group}).Warn("peer: delete failed")
		return false
	}
	return resp.OK
}

// Close drops the underlying connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpc == nil {
		return nil
	}
	err := c.rpc.Close()
	c.rpc = nil
	return err
}
