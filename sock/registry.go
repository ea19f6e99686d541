package sock

import (
	"net"
	"sync"
)

// clientConn is one accepted tcp-server peer.  It is owned exclusively
// by the registry; other code sees it only for the duration of a
// single read or write call.
type clientConn struct {
	conn net.Conn
	addr net.Addr
}

// connRegistry tracks the currently connected clients of a tcp-server
// endpoint.  It is the single shared-mutable boundary of the package:
// the accept loop adds, client readers and fan-out remove, Describe
// enumerates — all serialized by one mutex.  Snapshots keep fan-out
// iteration outside the lock.
type connRegistry struct {
	mu      sync.Mutex
	clients []*clientConn
}

func newConnRegistry() *connRegistry {
	return &connRegistry{}
}

// add registers an accepted connection and returns its handle.
func (r *connRegistry) add(conn net.Conn) *clientConn {
	c := &clientConn{conn: conn, addr: conn.RemoteAddr()}
	r.mu.Lock()
	r.clients = append(r.clients, c)
	r.mu.Unlock()
	return c
}

// remove unregisters c.  It reports whether c was still present, so a
// reader and a failed fan-out racing to drop the same client close it
// only once.
func (r *connRegistry) remove(c *clientConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.clients {
		if cur == c {
			r.clients = append(r.clients[:i], r.clients[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot returns the client set at call time, in join order.
func (r *connRegistry) snapshot() []*clientConn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*clientConn, len(r.clients))
	copy(out, r.clients)
	return out
}

// addrs returns the remote addresses of all connected clients, in
// join order.
func (r *connRegistry) addrs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c.addr.String())
	}
	return out
}

// size returns the number of connected clients.
func (r *connRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// drain removes every client and returns them for closing.
func (r *connRegistry) drain() []*clientConn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.clients
	r.clients = nil
	return out
}
