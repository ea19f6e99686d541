package sock

import (
	"context"
	"net"
	"sync"

	"polysock/config"
	perrors "polysock/internal/errors"
	"polysock/util"
)

// tcpClientEndpoint is a single established stream connection.  EOF on
// Read means the peer closed its write side.
type tcpClientEndpoint struct {
	label  string
	logger *util.Logger
	params config.Params

	conn net.Conn
	once sync.Once
}

func newTCPClient(params config.Params, opts Options) *tcpClientEndpoint {
	return &tcpClientEndpoint{
		label:  opts.Labels.assign(config.KindTCPClient),
		logger: opts.Logger,
		params: params,
	}
}

func (t *tcpClientEndpoint) Open(ctx context.Context) error {
	ip, err := t.params.RequireIP(config.KeyIPDst, `e.g. {"ip_dst": "127.0.0.1", "port_dst": 1234}`)
	if err != nil {
		return err
	}
	port, err := t.params.RequirePort(config.KeyPortDst, `e.g. {"ip_dst": "127.0.0.1", "port_dst": 1234}`)
	if err != nil {
		return err
	}

	addr := util.FormatAddr(ip, port)
	d := net.Dialer{Timeout: config.DefaultConnTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return perrors.Wrap("dial", addr, err)
	}
	t.conn = conn
	t.logger.Verbose("%s: connected to %s", t.label, conn.RemoteAddr())
	return nil
}

func (t *tcpClientEndpoint) Read() (Frame, error) {
	if t.conn == nil {
		return Frame{}, perrors.ErrNotOpen
	}
	buf := util.GetBuf()
	defer util.PutBuf(buf)

	n, err := t.conn.Read(*buf)
	if err != nil {
		// io.EOF passes through untouched: the pump reads it as a
		// graceful end of this direction.
		return Frame{}, err
	}
	return Frame{Data: append([]byte(nil), (*buf)[:n]...)}, nil
}

func (t *tcpClientEndpoint) Write(f Frame) error {
	if f.Empty() {
		return nil
	}
	if t.conn == nil {
		return perrors.ErrNotOpen
	}
	if err := writeAll(t.conn, f.Data); err != nil {
		return perrors.Wrap("write", t.conn.RemoteAddr().String(), err)
	}
	return nil
}

func (t *tcpClientEndpoint) Describe() string { return t.label }

func (t *tcpClientEndpoint) Close() error {
	var err error
	t.once.Do(func() {
		if t.conn != nil {
			err = t.conn.Close()
		}
	})
	return err
}

// writeAll loops until every byte is accepted by the transport.
func writeAll(conn net.Conn, data []byte) error {
	for len(data) > 0 {
		n, err := conn.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}
