package pump

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polysock/config"
	perrors "polysock/internal/errors"
	"polysock/util"
)

func quietLogger() *util.Logger { return util.NewLogger(0) }

// runPump starts cfg in the background and returns the result channel.
func runPump(ctx context.Context, p *Pump) <-chan error {
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	return done
}

func waitState(t *testing.T, p *Pump, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("pump never reached state %s (stuck at %s)", want, p.State())
}

func waitResult(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("pump did not finish in time")
		return nil
	}
}

func udpSpec(params config.Params) config.EndpointSpec {
	return config.EndpointSpec{Kind: config.KindUDP, Params: params}
}

func tcpClientSpec(port int) config.EndpointSpec {
	return config.EndpointSpec{Kind: config.KindTCPClient, Params: config.Params{
		"ip_dst":   "127.0.0.1",
		"port_dst": strconv.Itoa(port),
	}}
}

// acceptOne listens on a free loopback port and delivers the first
// accepted connection.
func acceptOne(t *testing.T) (port int, accepted <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	ch := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		ch <- conn
	}()
	return ln.Addr().(*net.TCPAddr).Port, ch
}

func TestPumpStartsIdle(t *testing.T) {
	p := New(&config.Config{}, quietLogger())
	assert.Equal(t, Idle, p.State())
}

func TestPumpRejectsInvalidConfig(t *testing.T) {
	p := New(&config.Config{}, quietLogger())
	err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, perrors.IsConfig(err))
	assert.Equal(t, Failed, p.State())
}

func TestPumpFailsWhenSourceCannotOpen(t *testing.T) {
	port, err := util.FindFreePort()
	require.NoError(t, err)

	cfg := &config.Config{
		From: tcpClientSpec(port), // nothing listening there
		To:   udpSpec(config.Params{"ip_dst": "127.0.0.1", "port_dst": "9"}),
	}
	p := New(cfg, quietLogger())

	err = p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, perrors.IsConnect(err), "want connect error, got %v", err)
	assert.Equal(t, Failed, p.State())
}

func TestPumpFailsWhenDestinationCannotOpen(t *testing.T) {
	port, err := util.FindFreePort()
	require.NoError(t, err)
	srcPort, err := util.FindFreeUDPPort()
	require.NoError(t, err)

	cfg := &config.Config{
		From: udpSpec(config.Params{"ip_local": "127.0.0.1", "port_local": strconv.Itoa(srcPort)}),
		To:   tcpClientSpec(port),
	}
	p := New(cfg, quietLogger())

	err = p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, perrors.IsConnect(err))
	assert.Equal(t, Failed, p.State())
}

func TestPumpForwardsFramesInOrder(t *testing.T) {
	inPort, err := util.FindFreeUDPPort()
	require.NoError(t, err)

	sink, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer sink.Close()
	outPort := sink.LocalAddr().(*net.UDPAddr).Port

	cfg := &config.Config{
		From: udpSpec(config.Params{"ip_local": "127.0.0.1", "port_local": strconv.Itoa(inPort)}),
		To:   udpSpec(config.Params{"ip_dst": "127.0.0.1", "port_dst": strconv.Itoa(outPort)}),
	}
	p := New(cfg, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runPump(ctx, p)
	waitState(t, p, Running)

	sender, err := net.Dial("udp", util.FormatAddr("127.0.0.1", inPort))
	require.NoError(t, err)
	defer sender.Close()

	payloads := []string{"one", "two", "three"}
	buf := make([]byte, 64)
	for _, msg := range payloads {
		_, err = sender.Write([]byte(msg))
		require.NoError(t, err)

		require.NoError(t, sink.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, err := sink.ReadFromUDP(buf)
		require.NoError(t, err)
		assert.Equal(t, msg, string(buf[:n]))
	}

	cancel()
	require.NoError(t, waitResult(t, done))
	assert.Equal(t, Closed, p.State())
	assert.Equal(t, int64(len(payloads)), p.Metrics().FramesForward())
	assert.Equal(t, int64(0), p.Metrics().FramesBackward())
}

func TestPumpClosesOnSourceEOF(t *testing.T) {
	port, accepted := acceptOne(t)

	cfg := &config.Config{
		From: tcpClientSpec(port),
		To:   udpSpec(config.Params{"ip_dst": "127.0.0.1", "port_dst": "9"}),
	}
	p := New(cfg, quietLogger())

	done := runPump(context.Background(), p)

	var server net.Conn
	select {
	case server = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("pump never dialed in")
	}

	// Peer hangup must end the whole run gracefully.
	server.Close()
	require.NoError(t, waitResult(t, done))
	assert.Equal(t, Closed, p.State())
}

func TestPumpBidirectional(t *testing.T) {
	fromPort, fromAccepted := acceptOne(t)
	toPort, toAccepted := acceptOne(t)

	cfg := &config.Config{
		From:      tcpClientSpec(fromPort),
		To:        tcpClientSpec(toPort),
		Direction: config.Bidirectional,
	}
	p := New(cfg, quietLogger())

	done := runPump(context.Background(), p)

	var fromPeer, toPeer net.Conn
	select {
	case fromPeer = <-fromAccepted:
	case <-time.After(2 * time.Second):
		t.Fatal("from side never connected")
	}
	select {
	case toPeer = <-toAccepted:
	case <-time.After(2 * time.Second):
		t.Fatal("to side never connected")
	}
	defer toPeer.Close()

	buf := make([]byte, 64)

	_, err := fromPeer.Write([]byte("forward"))
	require.NoError(t, err)
	require.NoError(t, toPeer.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := toPeer.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "forward", string(buf[:n]))

	_, err = toPeer.Write([]byte("backward"))
	require.NoError(t, err)
	require.NoError(t, fromPeer.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err = fromPeer.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "backward", string(buf[:n]))

	fromPeer.Close()
	require.NoError(t, waitResult(t, done))
	assert.Equal(t, Closed, p.State())
	assert.Equal(t, int64(1), p.Metrics().FramesForward())
	assert.Equal(t, int64(1), p.Metrics().FramesBackward())
}

func TestPumpUnidirectionalIgnoresReverseTraffic(t *testing.T) {
	fromPort, fromAccepted := acceptOne(t)
	toPort, toAccepted := acceptOne(t)

	cfg := &config.Config{
		From:      tcpClientSpec(fromPort),
		To:        tcpClientSpec(toPort),
		Direction: config.Unidirectional,
	}
	p := New(cfg, quietLogger())

	done := runPump(context.Background(), p)
	fromPeer := <-fromAccepted
	toPeer := <-toAccepted
	defer toPeer.Close()

	// Reverse traffic has no loop to carry it in unidir mode.
	_, err := toPeer.Write([]byte("ignored"))
	require.NoError(t, err)

	require.NoError(t, fromPeer.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	buf := make([]byte, 16)
	_, err = fromPeer.Read(buf)
	assert.Error(t, err, "nothing may arrive on the from side")

	fromPeer.Close()
	require.NoError(t, waitResult(t, done))
	assert.Equal(t, int64(0), p.Metrics().FramesBackward())
}

func TestPumpCancelDrainsAndCloses(t *testing.T) {
	inPort, err := util.FindFreeUDPPort()
	require.NoError(t, err)

	cfg := &config.Config{
		From: udpSpec(config.Params{"ip_local": "127.0.0.1", "port_local": strconv.Itoa(inPort)}),
		To:   udpSpec(config.Params{"ip_dst": "127.0.0.1", "port_dst": "9"}),
	}
	p := New(cfg, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := runPump(ctx, p)
	waitState(t, p, Running)

	cancel()
	require.NoError(t, waitResult(t, done))
	assert.Equal(t, Closed, p.State())
}

func TestPumpEmitsTrace(t *testing.T) {
	sink, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer sink.Close()
	outPort := sink.LocalAddr().(*net.UDPAddr).Port

	cfg := &config.Config{
		From: config.EndpointSpec{Kind: config.KindTestGen, Params: config.Params{
			"pat":      "text",
			"data":     "Hi",
			"iter_num": "1",
		}},
		To: udpSpec(config.Params{"ip_dst": "127.0.0.1", "port_dst": strconv.Itoa(outPort)}),
		Trace: config.DecoratorConfig{
			From: config.FacetSet{Info: true, Raw: true},
			To:   config.FacetSet{Info: true},
		},
	}
	p := New(cfg, quietLogger())
	var trace bytes.Buffer
	p.SetTraceOutput(&trace)

	// The generator's iteration limit ends the run by itself.
	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, Closed, p.State())

	require.NoError(t, sink.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 16)
	n, _, err := sink.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "Hi", string(buf[:n]))

	out := trace.String()
	assert.Contains(t, out, "Socket is opened: test-gen0")
	assert.Contains(t, out, "Data is received from: test-gen0")
	assert.Contains(t, out, "Data is received: [72, 105]")
	assert.Contains(t, out, "Data is transfered to: udp0")
	assert.Contains(t, out, "Socket is closed: test-gen0")
	assert.Contains(t, out, "Socket is closed: udp0")
	// The to side requested only the info facet.
	assert.NotContains(t, out, "Data is written:")
}

func TestPumpUDPToTCPServerFanOut(t *testing.T) {
	inPort, err := util.FindFreeUDPPort()
	require.NoError(t, err)
	srvPort, err := util.FindFreePort()
	require.NoError(t, err)

	cfg := &config.Config{
		From: udpSpec(config.Params{"ip_local": "127.0.0.1", "port_local": strconv.Itoa(inPort)}),
		To: config.EndpointSpec{Kind: config.KindTCPServer, Params: config.Params{
			"ip_local":   "127.0.0.1",
			"port_local": strconv.Itoa(srvPort),
		}},
	}
	p := New(cfg, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runPump(ctx, p)
	waitState(t, p, Running)

	first, err := net.Dial("tcp", util.FormatAddr("127.0.0.1", srvPort))
	require.NoError(t, err)
	defer first.Close()
	second, err := net.Dial("tcp", util.FormatAddr("127.0.0.1", srvPort))
	require.NoError(t, err)
	defer second.Close()

	// Both clients must be registered before the broadcast.
	deadline := time.Now().Add(2 * time.Second)
	for p.Metrics().ActiveClients() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, int64(2), p.Metrics().ActiveClients())

	sender, err := net.Dial("udp", util.FormatAddr("127.0.0.1", inPort))
	require.NoError(t, err)
	defer sender.Close()
	_, err = sender.Write([]byte("Hello"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	for _, client := range []net.Conn{first, second} {
		require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, err := client.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, "Hello", string(buf[:n]))
	}

	cancel()
	require.NoError(t, waitResult(t, done))
	assert.Equal(t, Closed, p.State())
}

func TestStateString(t *testing.T) {
	states := map[State]string{
		Idle:     "idle",
		Opening:  "opening",
		Running:  "running",
		Draining: "draining",
		Closed:   "closed",
		Failed:   "failed",
	}
	for s, want := range states {
		assert.Equal(t, want, s.String())
	}
}
