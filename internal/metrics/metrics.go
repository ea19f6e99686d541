// Package metrics provides lightweight, lock-free counters for
// tracking runtime statistics of a polysock run.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one pump run.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	framesForward  atomic.Int64 // from → to
	framesBackward atomic.Int64 // to → from
	bytesForward   atomic.Int64
	bytesBackward  atomic.Int64
	clientsActive  atomic.Int64
	clientsTotal   atomic.Int64
	fanOutDropped  atomic.Int64
	errorsTotal    atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Transfer metrics ─────────────────────────────────────────────────

// FrameForwarded records one frame of n bytes moved in the from→to
// direction; backward selects the reverse loop of a bidirectional run.
func (c *Collector) FrameForwarded(n int, backward bool) {
	if c == nil {
		return
	}
	if backward {
		c.framesBackward.Add(1)
		c.bytesBackward.Add(int64(n))
		return
	}
	c.framesForward.Add(1)
	c.bytesForward.Add(int64(n))
}

// FramesForward returns the from→to frame count.
func (c *Collector) FramesForward() int64 {
	if c == nil {
		return 0
	}
	return c.framesForward.Load()
}

// FramesBackward returns the to→from frame count.
func (c *Collector) FramesBackward() int64 {
	if c == nil {
		return 0
	}
	return c.framesBackward.Load()
}

// ── Server client metrics ────────────────────────────────────────────

// ClientConnected increments both the active and total client counters.
func (c *Collector) ClientConnected() {
	if c == nil {
		return
	}
	c.clientsActive.Add(1)
	c.clientsTotal.Add(1)
}

// ClientDisconnected decrements the active client counter.
func (c *Collector) ClientDisconnected() {
	if c == nil {
		return
	}
	c.clientsActive.Add(-1)
}

// ActiveClients returns the current number of connected clients.
func (c *Collector) ActiveClients() int64 {
	if c == nil {
		return 0
	}
	return c.clientsActive.Load()
}

// FanOutDropped records n clients dropped during a broadcast write.
func (c *Collector) FanOutDropped(n int) {
	if c == nil {
		return
	}
	c.fanOutDropped.Add(int64(n))
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	FramesForward    int64  `json:"frames_forward"`
	FramesBackward   int64  `json:"frames_backward"`
	BytesForward     int64  `json:"bytes_forward"`
	BytesBackward    int64  `json:"bytes_backward"`
	ClientsActive    int64  `json:"clients_active"`
	ClientsTotal     int64  `json:"clients_total"`
	FanOutDropped    int64  `json:"fan_out_dropped"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:         time.Since(c.startTime).Truncate(time.Second).String(),
		FramesForward:  c.framesForward.Load(),
		FramesBackward: c.framesBackward.Load(),
		BytesForward:   c.bytesForward.Load(),
		BytesBackward:  c.bytesBackward.Load(),
		ClientsActive:  c.clientsActive.Load(),
		ClientsTotal:   c.clientsTotal.Load(),
		FanOutDropped:  c.fanOutDropped.Load(),
		ErrorsTotal:    c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
