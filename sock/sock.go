// Package sock implements the endpoint abstraction: one contract over
// standard I/O, UDP datagrams, a TCP client stream, a fan-in/fan-out
// TCP server, and a synthetic test generator, plus the tracing
// decorators that observe their read/write paths.
package sock

import (
	"context"
	"fmt"
	"sync"

	"polysock/config"
	perrors "polysock/internal/errors"
	"polysock/internal/metrics"
	"polysock/util"
)

// Endpoint is one side of a bridge.  An endpoint is either fully open
// (capable of Read/Write) or fully closed; Close is idempotent and
// unblocks a pending Read.
type Endpoint interface {
	// Open acquires the underlying resource.  Dial-style endpoints
	// honor ctx for connection establishment.
	Open(ctx context.Context) error

	// Read blocks until one frame of data is available, the peer
	// closes (io.EOF), or the endpoint is closed underneath it
	// (errors.ErrClosed or the transport's own closed-connection
	// error; all classify as a disconnect).
	Read() (Frame, error)

	// Write sends one frame.  It blocks until the transport accepts
	// the bytes or fails.
	Write(Frame) error

	// Describe returns a stable human-readable identity such as
	// "tcp-server0", numbered by creation order within the run.
	Describe() string

	// Close releases the underlying resource.  Safe to call more
	// than once and from a different goroutine than Read/Write.
	Close() error
}

// ── Run-scoped labelling ─────────────────────────────────────────────

// Labels numbers endpoints per kind within one run, so two runs in the
// same process both start at "stdio0".
type Labels struct {
	mu   sync.Mutex
	next map[config.EndpointKind]int
}

// NewLabels returns an empty per-run label counter.
func NewLabels() *Labels {
	return &Labels{next: make(map[config.EndpointKind]int)}
}

func (l *Labels) assign(kind config.EndpointKind) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.next[kind]
	l.next[kind] = n + 1
	return fmt.Sprintf("%s%d", kind, n)
}

// ── Factory ──────────────────────────────────────────────────────────

// Options carries the shared collaborators every endpoint receives.
type Options struct {
	Labels  *Labels
	Logger  *util.Logger
	Metrics *metrics.Collector
}

func (o Options) withDefaults() Options {
	if o.Labels == nil {
		o.Labels = NewLabels()
	}
	if o.Logger == nil {
		o.Logger = util.NewLogger(0)
	}
	return o
}

// New builds the endpoint variant selected by spec.  Parameters are
// validated lazily: a kind mismatch is caught here, parameter errors
// surface from Open.
func New(spec config.EndpointSpec, opts Options) (Endpoint, error) {
	opts = opts.withDefaults()
	switch spec.Kind {
	case config.KindStdio:
		return newStdio(spec.Params, opts), nil
	case config.KindUDP:
		return newUDP(spec.Params, opts), nil
	case config.KindTCPClient:
		return newTCPClient(spec.Params, opts), nil
	case config.KindTCPServer:
		return newTCPServer(spec.Params, opts), nil
	case config.KindTestGen:
		return newTestGen(spec.Params, opts), nil
	}
	return nil, perrors.Config("dev", string(spec.Kind), "unknown endpoint kind")
}

// ParamsExample returns a copy-pasteable parameter example for kind,
// shown by the CLI's device listing.
func ParamsExample(kind config.EndpointKind) string {
	switch kind {
	case config.KindStdio:
		return `{}`
	case config.KindUDP:
		return `{"ip_dst": "127.0.0.1", "port_dst": 5150}  or  {"port_local": 5150}`
	case config.KindTCPClient:
		return `{"ip_dst": "127.0.0.1", "port_dst": 1234}`
	case config.KindTCPServer:
		return `{"port_local": 1234}`
	case config.KindTestGen:
		return `{"pat": "inc", "data": "0xf0", "size": 100, "cycle": 10000}`
	}
	return ""
}
