package sock

import (
	"context"
	"fmt"
	"io"
	"strings"

	"polysock/config"
)

// Decorate wraps ep in the trace decorators selected by facets.  The
// emission order is fixed: info, then raw, then canonical.  Decorators
// never mutate the frame; each is a pure observer around the wrapped
// endpoint's read/write path.  A facet that is not requested is not
// installed at all.
func Decorate(ep Endpoint, facets config.FacetSet, out io.Writer) Endpoint {
	// Innermost emits first, so wrap in emission order.
	if facets.Info {
		ep = &traceInfo{next: ep, out: out}
	}
	if facets.Raw {
		ep = &traceRaw{next: ep, out: out}
	}
	if facets.Canonical {
		ep = &traceCanonical{next: ep, out: out}
	}
	return ep
}

// ── info facet ───────────────────────────────────────────────────────

// traceInfo reports which endpoint data moved through.  For a
// tcp-server the description also enumerates the connected clients.
type traceInfo struct {
	next Endpoint
	out  io.Writer
}

func (d *traceInfo) Open(ctx context.Context) error {
	fmt.Fprintf(d.out, "Socket is opened: %s\n", d.next.Describe())
	return d.next.Open(ctx)
}

func (d *traceInfo) Read() (Frame, error) {
	f, err := d.next.Read()
	if err == nil && !f.Empty() {
		fmt.Fprintf(d.out, "Data is received from: %s\n", d.next.Describe())
	}
	return f, err
}

func (d *traceInfo) Write(f Frame) error {
	err := d.next.Write(f)
	if err == nil && !f.Empty() {
		fmt.Fprintf(d.out, "Data is transfered to: %s\n", d.next.Describe())
	}
	return err
}

func (d *traceInfo) Describe() string { return d.next.Describe() }

func (d *traceInfo) Close() error {
	fmt.Fprintf(d.out, "Socket is closed: %s\n", d.next.Describe())
	return d.next.Close()
}

// ── raw facet ────────────────────────────────────────────────────────

// traceRaw dumps frame bytes as a decimal array.
type traceRaw struct {
	next Endpoint
	out  io.Writer
}

func (d *traceRaw) Open(ctx context.Context) error { return d.next.Open(ctx) }

func (d *traceRaw) Read() (Frame, error) {
	f, err := d.next.Read()
	if err == nil && !f.Empty() {
		fmt.Fprintf(d.out, "Data is received: %s\n", decimalArray(f.Data))
	}
	return f, err
}

func (d *traceRaw) Write(f Frame) error {
	err := d.next.Write(f)
	if err == nil && !f.Empty() {
		fmt.Fprintf(d.out, "Data is written: %s\n", decimalArray(f.Data))
	}
	return err
}

func (d *traceRaw) Describe() string { return d.next.Describe() }
func (d *traceRaw) Close() error     { return d.next.Close() }

func decimalArray(data []byte) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, c := range data {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", c)
	}
	b.WriteByte(']')
	return b.String()
}

// ── canonical facet ──────────────────────────────────────────────────

// traceCanonical dumps frame bytes in the fixed-width hex format of
// [CanonicalDump].
type traceCanonical struct {
	next Endpoint
	out  io.Writer
}

func (d *traceCanonical) Open(ctx context.Context) error { return d.next.Open(ctx) }

func (d *traceCanonical) Read() (Frame, error) {
	f, err := d.next.Read()
	if err == nil && !f.Empty() {
		fmt.Fprintf(d.out, "Received data (canonical format):\n%s\n", CanonicalDump(f.Data))
	}
	return f, err
}

func (d *traceCanonical) Write(f Frame) error {
	err := d.next.Write(f)
	if err == nil && !f.Empty() {
		fmt.Fprintf(d.out, "Written data (canonical format):\n%s\n", CanonicalDump(f.Data))
	}
	return err
}

func (d *traceCanonical) Describe() string { return d.next.Describe() }
func (d *traceCanonical) Close() error     { return d.next.Close() }
