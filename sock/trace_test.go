package sock

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polysock/config"
)

// fakeEndpoint serves canned frames and records writes, so decorator
// tests control exactly what moves through the chain.
type fakeEndpoint struct {
	label   string
	frames  []Frame
	written []Frame
	readErr error
}

func (f *fakeEndpoint) Open(context.Context) error { return nil }

func (f *fakeEndpoint) Read() (Frame, error) {
	if f.readErr != nil {
		return Frame{}, f.readErr
	}
	if len(f.frames) == 0 {
		return Frame{}, io.EOF
	}
	fr := f.frames[0]
	f.frames = f.frames[1:]
	return fr, nil
}

func (f *fakeEndpoint) Write(fr Frame) error {
	f.written = append(f.written, fr)
	return nil
}

func (f *fakeEndpoint) Describe() string { return f.label }
func (f *fakeEndpoint) Close() error     { return nil }

func TestDecorateNoFacets(t *testing.T) {
	ep := &fakeEndpoint{label: "fake0"}
	got := Decorate(ep, config.FacetSet{}, io.Discard)
	assert.Same(t, ep, got)
}

func TestInfoFacet(t *testing.T) {
	ep := &fakeEndpoint{label: "udp0", frames: []Frame{{Data: []byte("ping")}}}
	var out bytes.Buffer
	dec := Decorate(ep, config.FacetSet{Info: true}, &out)

	require.NoError(t, dec.Open(context.Background()))
	assert.Equal(t, "Socket is opened: udp0\n", out.String())
	out.Reset()

	f, err := dec.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), f.Data)
	assert.Equal(t, "Data is received from: udp0\n", out.String())
	out.Reset()

	require.NoError(t, dec.Write(Frame{Data: []byte("pong")}))
	assert.Equal(t, "Data is transfered to: udp0\n", out.String())
	out.Reset()

	require.NoError(t, dec.Close())
	assert.Equal(t, "Socket is closed: udp0\n", out.String())
}

func TestRawFacet(t *testing.T) {
	ep := &fakeEndpoint{label: "udp0", frames: []Frame{{Data: []byte("ping")}}}
	var out bytes.Buffer
	dec := Decorate(ep, config.FacetSet{Raw: true}, &out)

	_, err := dec.Read()
	require.NoError(t, err)
	assert.Equal(t, "Data is received: [112, 105, 110, 103]\n", out.String())
	out.Reset()

	require.NoError(t, dec.Write(Frame{Data: []byte{0, 255}}))
	assert.Equal(t, "Data is written: [0, 255]\n", out.String())
}

func TestCanonicalFacet(t *testing.T) {
	ep := &fakeEndpoint{label: "udp0", frames: []Frame{{Data: []byte("Hello")}}}
	var out bytes.Buffer
	dec := Decorate(ep, config.FacetSet{Canonical: true}, &out)

	_, err := dec.Read()
	require.NoError(t, err)
	want := "Received data (canonical format):\n" +
		"Length: 5 (0x5) bytes\n" +
		"0000:   48 65 6c 6c  6f                                     Hello\n"
	assert.Equal(t, want, out.String())
	out.Reset()

	require.NoError(t, dec.Write(Frame{Data: []byte("Hi")}))
	assert.True(t, strings.HasPrefix(out.String(), "Written data (canonical format):\n"))
}

func TestFacetEmissionOrder(t *testing.T) {
	ep := &fakeEndpoint{label: "tcp-client0", frames: []Frame{{Data: []byte("x")}}}
	var out bytes.Buffer
	dec := Decorate(ep, config.FacetSet{Info: true, Raw: true, Canonical: true}, &out)

	_, err := dec.Read()
	require.NoError(t, err)

	s := out.String()
	info := strings.Index(s, "Data is received from:")
	raw := strings.Index(s, "Data is received: [")
	canon := strings.Index(s, "Received data (canonical format):")
	require.NotEqual(t, -1, info)
	require.NotEqual(t, -1, raw)
	require.NotEqual(t, -1, canon)
	assert.Less(t, info, raw)
	assert.Less(t, raw, canon)
	out.Reset()

	require.NoError(t, dec.Write(Frame{Data: []byte("y")}))
	s = out.String()
	info = strings.Index(s, "Data is transfered to:")
	raw = strings.Index(s, "Data is written: [")
	canon = strings.Index(s, "Written data (canonical format):")
	assert.Less(t, info, raw)
	assert.Less(t, raw, canon)
}

func TestFacetsSkipEmptyFrames(t *testing.T) {
	ep := &fakeEndpoint{label: "udp0", frames: []Frame{{}}}
	var out bytes.Buffer
	dec := Decorate(ep, config.FacetSet{Info: true, Raw: true, Canonical: true}, &out)

	f, err := dec.Read()
	require.NoError(t, err)
	assert.True(t, f.Empty())
	assert.Empty(t, out.String())

	require.NoError(t, dec.Write(Frame{}))
	assert.Empty(t, out.String())
}

func TestFacetsSkipFailedReads(t *testing.T) {
	ep := &fakeEndpoint{label: "udp0", readErr: io.EOF}
	var out bytes.Buffer
	dec := Decorate(ep, config.FacetSet{Info: true, Raw: true, Canonical: true}, &out)

	_, err := dec.Read()
	assert.ErrorIs(t, err, io.EOF)
	assert.Empty(t, out.String())
}

func TestFacetsDelegateWrites(t *testing.T) {
	ep := &fakeEndpoint{label: "udp0"}
	dec := Decorate(ep, config.FacetSet{Info: true, Raw: true}, io.Discard)

	require.NoError(t, dec.Write(Frame{Data: []byte("payload")}))
	require.Len(t, ep.written, 1)
	assert.Equal(t, []byte("payload"), ep.written[0].Data)
}

func TestDecoratedDescribeDelegates(t *testing.T) {
	ep := &fakeEndpoint{label: "tcp-server0"}
	dec := Decorate(ep, config.FacetSet{Info: true, Raw: true, Canonical: true}, io.Discard)
	assert.Equal(t, "tcp-server0", dec.Describe())
}
