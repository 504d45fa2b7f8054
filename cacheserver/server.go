// Package cacheserver implements the RPC-serving, coordinator-registering
// node of the cluster: it starts an RPC listener, registers
// (serviceName, addr) with the coordinator under a lease, and dispatches
// incoming get/set/delete RPCs to the named cache group.
package cacheserver

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/distcache/distcache/coordinator"
	"github.com/distcache/distcache/group"
	"github.com/distcache/distcache/peer"
)

// ErrGroupNotFound is returned when the requested RPC names a group this
// node has not registered.
var ErrGroupNotFound = errors.New("cacheserver: group not found")

// Server is the RPC-reachable node side of the cluster: net/rpc service
// named "CacheServer" (matching the method names peer.Client dials),
// backed by whatever groups this process has constructed with
// group.NewGroup.
type Server struct {
	serviceName string
	addr        string
	registrar   coordinator.Registrar
	rpcServer   *rpc.Server

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
}

// New constructs a server for serviceName, listening at addr once
// ListenAndServe is called, registering through registrar.
func New(serviceName, addr string, registrar coordinator.Registrar) *Server {
	s := &Server{
		serviceName: serviceName,
		addr:        addr,
		registrar:   registrar,
		rpcServer:   rpc.NewServer(),
	}
	if err := s.rpcServer.RegisterName("CacheServer", s); err != nil {
		panic(err) // only fails if the method set shape is wrong, a programming error
	}
	return s
}

// ListenAndServe opens the RPC listener, registers with the coordinator,
// then serves connections in the background until Stop is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	if err := s.registrar.Register(ctx, s.serviceName, ln.Addr().String()); err != nil {
		ln.Close()
		return err
	}

	go s.rpcServer.Accept(ln)
	logrus.WithFields(logrus.Fields{"service": s.serviceName, "addr": ln.Addr().String()}).Info("cacheserver: listening")
	return nil
}

// Stop shuts down the RPC listener, then unregisters from the coordinator,
// in that order.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	ln := s.listener
	s.mu.Unlock()

	var lnErr error
	if ln != nil {
		lnErr = ln.Close()
	}
	regErr := s.registrar.Unregister(ctx)
	if lnErr != nil {
		return lnErr
	}
	return regErr
}

// Get dispatches a peer.GetRequest to the named group.
func (s *Server) Get(req *peer.GetRequest, resp *peer.GetResponse) error {
	g, ok := group.Lookup(req.Group)
	if !ok {
		return ErrGroupNotFound
	}
	v, err := g.Get(context.Background(), req.Key)
	if err != nil {
		if errors.Is(err, group.ErrNotFound) {
			resp.Found = false
			return nil
		}
		return err
	}
	resp.Value, resp.Found = v, true
	return nil
}

// Set dispatches a peer.SetRequest to the named group. broadcast=true is
// always passed: this node's own address is itself a member of its
// picker's ring (see peer.Picker), so Pick(key) only ever returns an
// owning peer other than this node when this node genuinely is not the
// owner. An inbound Set RPC is only ever routed here because some ring
// (the gateway's or another node's) already resolved this node as the
// owner, and every ring agrees on the same membership, so Pick(key) here
// resolves to "handle locally" and the broadcast is a true no-op rather
// than a re-forward.
func (s *Server) Set(req *peer.SetRequest, resp *peer.SetResponse) error {
	g, ok := group.Lookup(req.Group)
	if !ok {
		return ErrGroupNotFound
	}
	g.Set(req.Key, req.Value, true)
	resp.OK = true
	return nil
}

// Delete dispatches a peer.DeleteRequest to the named group, with the
// same broadcast=true reasoning as Set.
func (s *Server) Delete(req *peer.DeleteRequest, resp *peer.DeleteResponse) error {
	g, ok := group.Lookup(req.Group)
	if !ok {
		return ErrGroupNotFound
	}
	g.Delete(req.Key, true)
	resp.OK = true
	return nil
}
