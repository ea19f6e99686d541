package sock

import (
	"context"
	"net"
	"sync"

	"polysock/config"
	perrors "polysock/internal/errors"
	"polysock/util"
)

// udpEndpoint moves one datagram per Read/Write.  There is no
// connection state: every write targets the fixed ip_dst:port_dst
// destination, every read accepts from anyone on the bound port.
type udpEndpoint struct {
	label  string
	logger *util.Logger
	params config.Params

	conn *net.UDPConn
	dst  *net.UDPAddr
	rbuf []byte
	once sync.Once
}

func newUDP(params config.Params, opts Options) *udpEndpoint {
	return &udpEndpoint{
		label:  opts.Labels.assign(config.KindUDP),
		logger: opts.Logger,
		params: params,
	}
}

func (u *udpEndpoint) Open(_ context.Context) error {
	portLocal, hasLocal, err := u.params.Port(config.KeyPortLocal)
	if err != nil {
		return err
	}
	portDst, hasDstPort, err := u.params.Port(config.KeyPortDst)
	if err != nil {
		return err
	}
	ipDst, hasDstIP, err := u.params.IP(config.KeyIPDst)
	if err != nil {
		return err
	}

	if !hasLocal && !hasDstPort {
		return perrors.Missing(config.KeyPortLocal,
			"a UDP endpoint needs port_local (receive), port_dst (send), or both")
	}
	if hasDstPort != hasDstIP {
		if hasDstPort {
			return perrors.Missing(config.KeyIPDst, "port_dst needs a destination host")
		}
		return perrors.Missing(config.KeyPortDst, "ip_dst needs a destination port")
	}

	localIP, err := u.params.LocalIP()
	if err != nil {
		return err
	}

	localAddr := util.FormatAddr(localIP, portLocal)
	ua, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return perrors.Wrap("bind", localAddr, err)
	}
	conn, err := net.ListenUDP("udp", ua)
	if err != nil {
		return perrors.Wrap("bind", localAddr, err)
	}

	u.conn = conn
	if hasDstIP {
		u.dst = &net.UDPAddr{IP: net.ParseIP(ipDst), Port: portDst}
	}
	u.rbuf = make([]byte, config.MaxDatagramSize)
	u.logger.Verbose("%s: bound %s, destination %v", u.label, conn.LocalAddr(), u.dst)
	return nil
}

func (u *udpEndpoint) Read() (Frame, error) {
	if u.conn == nil {
		return Frame{}, perrors.ErrNotOpen
	}
	n, _, err := u.conn.ReadFromUDP(u.rbuf)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: append([]byte(nil), u.rbuf[:n]...)}, nil
}

func (u *udpEndpoint) Write(f Frame) error {
	if f.Empty() {
		return nil
	}
	if u.conn == nil {
		return perrors.ErrNotOpen
	}
	if u.dst == nil {
		return perrors.Wrap("write", u.label, perrors.ErrNoDestination)
	}
	if _, err := u.conn.WriteToUDP(f.Data, u.dst); err != nil {
		return perrors.Wrap("write", u.dst.String(), err)
	}
	return nil
}

func (u *udpEndpoint) Describe() string { return u.label }

func (u *udpEndpoint) Close() error {
	var err error
	u.once.Do(func() {
		if u.conn != nil {
			err = u.conn.Close()
		}
	})
	return err
}
