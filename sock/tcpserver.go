package sock

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"

	"polysock/config"
	perrors "polysock/internal/errors"
	"polysock/internal/metrics"
	"polysock/util"
)

// tcpServerEndpoint is a listening socket that fans reads in from, and
// writes out to, every currently connected client.  Open only binds
// and listens; accepting happens on a background loop, so clients may
// come and go for the lifetime of the endpoint without ever
// terminating it.
type tcpServerEndpoint struct {
	label   string
	logger  *util.Logger
	metrics *metrics.Collector
	params  config.Params

	ln     net.Listener
	reg    *connRegistry
	frames chan Frame
	done   chan struct{}
	once   sync.Once
}

func newTCPServer(params config.Params, opts Options) *tcpServerEndpoint {
	return &tcpServerEndpoint{
		label:   opts.Labels.assign(config.KindTCPServer),
		logger:  opts.Logger,
		metrics: opts.Metrics,
		params:  params,
		reg:     newConnRegistry(),
		frames:  make(chan Frame, config.FanInBacklog),
		done:    make(chan struct{}),
	}
}

func (t *tcpServerEndpoint) Open(_ context.Context) error {
	port, err := t.params.RequirePort(config.KeyPortLocal, `e.g. {"port_local": 1234}`)
	if err != nil {
		return err
	}
	ip, err := t.params.LocalIP()
	if err != nil {
		return err
	}

	addr := util.FormatAddr(ip, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return perrors.Wrap("listen", addr, err)
	}
	t.ln = ln
	t.logger.Verbose("%s: listening on %s", t.label, ln.Addr())

	go t.acceptLoop()
	return nil
}

func (t *tcpServerEndpoint) acceptLoop() {
	for {
		conn, err := t.ln.Accept()
		if err != nil {
			select {
			case <-t.done:
			default:
				t.logger.Error("%s: accept: %v", t.label, err)
				t.metrics.RecordError(err.Error())
			}
			return
		}
		c := t.reg.add(conn)
		t.metrics.ClientConnected()
		t.logger.Verbose("%s: client %s connected", t.label, c.addr)
		go t.clientLoop(c)
	}
}

// clientLoop reads one client's stream and feeds the shared fan-in
// channel.  One goroutine per client gives readiness-driven fairness:
// no connected client with pending data waits on another client's
// silence.  Frames from the same client keep their stream order.
func (t *tcpServerEndpoint) clientLoop(c *clientConn) {
	buf := util.GetBuf()
	defer util.PutBuf(buf)

	for {
		n, err := c.conn.Read(*buf)
		if n > 0 {
			f := Frame{Data: append([]byte(nil), (*buf)[:n]...), From: c.addr}
			select {
			case t.frames <- f:
			case <-t.done:
				return
			}
		}
		if err != nil {
			if t.reg.remove(c) {
				c.conn.Close()
				t.metrics.ClientDisconnected()
				if err == io.EOF {
					t.logger.Verbose("%s: client %s disconnected", t.label, c.addr)
				} else if !perrors.IsDisconnect(err) {
					t.logger.Warn("%s: client %s read: %v", t.label, c.addr, err)
				}
			}
			return
		}
	}
}

// Read returns the next available frame from any connected client,
// tagged with that client's address.  It blocks until a client sends
// data or the endpoint is closed; clients connecting or disconnecting
// never wake it.
func (t *tcpServerEndpoint) Read() (Frame, error) {
	if t.ln == nil {
		return Frame{}, perrors.ErrNotOpen
	}
	select {
	case f := <-t.frames:
		return f, nil
	case <-t.done:
		return Frame{}, perrors.ErrClosed
	}
}

// Write fans the frame out to the clients connected at call time.  A
// failed client is dropped from the registry without aborting the
// remaining deliveries; with zero clients the write is a no-op.
func (t *tcpServerEndpoint) Write(f Frame) error {
	if f.Empty() {
		return nil
	}
	if t.ln == nil {
		return perrors.ErrNotOpen
	}

	clients := t.reg.snapshot()
	if len(clients) == 0 {
		return nil
	}

	delivered, dropped := 0, 0
	for _, c := range clients {
		if err := writeAll(c.conn, f.Data); err != nil {
			if t.reg.remove(c) {
				c.conn.Close()
				t.metrics.ClientDisconnected()
			}
			dropped++
			t.logger.Warn("%s: dropping client %s: %v", t.label, c.addr, err)
			continue
		}
		delivered++
	}
	if dropped > 0 {
		t.metrics.FanOutDropped(dropped)
		t.logger.Verbose("%s: fan-out delivered to %d of %d clients", t.label, delivered, len(clients))
	}
	return nil
}

// Describe names the endpoint and enumerates the currently connected
// clients by address.
func (t *tcpServerEndpoint) Describe() string {
	addrs := t.reg.addrs()
	if len(addrs) == 0 {
		return t.label
	}
	var b strings.Builder
	b.WriteString(t.label)
	b.WriteString(", connected clients:")
	for _, a := range addrs {
		b.WriteString("\nClient ")
		b.WriteString(a)
	}
	return b.String()
}

func (t *tcpServerEndpoint) Close() error {
	var err error
	t.once.Do(func() {
		close(t.done)
		if t.ln != nil {
			err = t.ln.Close()
		}
		for _, c := range t.reg.drain() {
			c.conn.Close()
			t.metrics.ClientDisconnected()
		}
	})
	return err
}
