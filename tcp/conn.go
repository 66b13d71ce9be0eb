//go:build unix

package tcp

import (
	"fmt"
	"io"
	"net"

	"github.com/Trinoooo/iot_tcp/consts"
	"github.com/Trinoooo/iot_tcp/errs"
	"github.com/Trinoooo/iot_tcp/logs"
	"golang.org/x/sys/unix"
	"go.uber.org/zap"
)

// Conn owns one IPv4 TCP socket descriptor. Each method issues at most one
// socket call; a negative descriptor means the handle holds no resource.
//
// A Conn is not safe for concurrent use.
type Conn struct {
	fd    int
	tout  int
	raddr *unix.SockaddrInet4
	opts  options
}

// NewConn returns a client handle with no descriptor. Connect allocates one.
func NewConn(opts ...Option) *Conn {
	return &Conn{
		fd:   consts.InvalidFd,
		opts: buildOptions(opts),
	}
}

// newAcceptedConn wraps a descriptor produced by accept.
func newAcceptedConn(fd int, raddr *unix.SockaddrInet4, opts options) *Conn {
	return &Conn{
		fd:    fd,
		raddr: raddr,
		opts:  opts,
	}
}

// Connect connects to a dotted IPv4 address. An unparsable address is
// rejected before any descriptor is allocated.
func (c *Conn) Connect(ip string, port uint16) error {
	addr, ok := parseIPv4(ip)
	if !ok {
		e := errs.NewInvalidAddressErr()
		logs.Conn().Error(e.Error(), zap.String(consts.LogFieldIp, ip))
		return e
	}
	return c.connect(addr, port)
}

// ConnectIP connects to an IPv4 address given as a number in host order,
// 0x7F000001 being 127.0.0.1. This is not the lwIP s_addr layout, where the
// value is stored in network byte order and 0x7F000001 on a little-endian
// chip reads as 1.0.0.127.
func (c *Conn) ConnectIP(ip uint32, port uint16) error {
	return c.connect(ipv4FromUint32(ip), port)
}

func (c *Conn) connect(addr [4]byte, port uint16) error {
	if c.fd < 0 {
		fd, err := newSocket()
		if err != nil {
			e := errs.NewAllocSocketErr().WithErr(err)
			logs.Conn().Error(e.Error())
			c.opts.metrics.SocketError("socket")
			c.opts.metrics.ConnectFailed()
			return e
		}
		c.fd = fd
		c.opts.metrics.FdOpened()
		logs.Conn().Debug("allocated socket", zap.Int(consts.LogFieldFd, fd))
	}

	sa := &unix.SockaddrInet4{Port: int(port), Addr: addr}
	if err := unix.Connect(c.fd, sa); err != nil {
		e := errs.NewConnectErr().WithErr(err)
		logs.Conn().Error(e.Error(),
			zap.String(consts.LogFieldIp, ipString(addr)),
			zap.Uint16(consts.LogFieldPort, port),
			zap.Int(consts.LogFieldFd, c.fd),
		)
		c.opts.metrics.SocketError("connect")
		c.opts.metrics.ConnectFailed()
		c.invalidate()
		return e
	}

	c.raddr = sa
	c.opts.metrics.Connected()
	logs.Conn().Debug("connected",
		zap.String(consts.LogFieldIp, ipString(addr)),
		zap.Uint16(consts.LogFieldPort, port),
		zap.Int(consts.LogFieldFd, c.fd),
	)
	return nil
}

// SetTimeout sets the receive timeout in seconds, 0 clears it. A failing
// setsockopt closes the descriptor.
func (c *Conn) SetTimeout(seconds int) error {
	if seconds < 0 {
		e := errs.NewInvalidParamErr()
		logs.Conn().Error(e.Error(), zap.String(consts.LogFieldParams, "timeout"), zap.Int(consts.LogFieldValue, seconds))
		return e
	}
	if c.fd < 0 {
		return errs.NewInvalidDescriptorErr()
	}

	c.tout = seconds
	if err := setRecvTimeout(c.fd, seconds); err != nil {
		e := errs.NewSetSockOptErr().WithErr(err)
		logs.Conn().Error("failed to set socket receiving timeout", zap.Error(e), zap.Int(consts.LogFieldFd, c.fd))
		c.opts.metrics.SocketError("setsockopt")
		c.invalidate()
		return e
	}
	return nil
}

// Read performs a single recv into buf. A positive timeout is applied with
// SetTimeout first. The peer closing the connection yields io.EOF, an
// expired receive timeout an error satisfying errs.IsTimeout.
func (c *Conn) Read(buf []byte, timeout int) (int, error) {
	if c.fd < 0 {
		return 0, errs.NewInvalidDescriptorErr()
	}

	if timeout > 0 {
		if err := c.SetTimeout(timeout); err != nil {
			return 0, err
		}
	}

	fd := c.fd
	n, err := ignoringEINTR(func() (int, error) {
		return unix.Read(fd, buf)
	})
	if err != nil {
		if isTimeoutErrno(err) {
			return 0, errs.NewTimeoutErr().WithErr(err)
		}
		e := errs.NewRecvErr().WithErr(err)
		logs.Conn().Error(e.Error(), zap.Int(consts.LogFieldFd, fd))
		c.opts.metrics.SocketError("recv")
		return 0, e
	}
	if n == 0 && len(buf) > 0 {
		return 0, io.EOF
	}

	c.opts.metrics.Read(n)
	return n, nil
}

// Write performs a single send of buf. A short send is returned as is.
// A failing send closes the descriptor.
func (c *Conn) Write(buf []byte) (int, error) {
	if c.fd < 0 {
		e := errs.NewInvalidDescriptorErr()
		logs.Conn().Error("socket error", zap.Error(e))
		return 0, e
	}

	fd := c.fd
	n, err := ignoringEINTR(func() (int, error) {
		return unix.SendmsgN(fd, buf, nil, nil, sendFlags)
	})
	if err != nil {
		e := errs.NewSendErr().WithErr(err)
		logs.Conn().Error(e.Error(), zap.Int(consts.LogFieldFd, fd), zap.Int(consts.LogFieldLength, len(buf)))
		c.opts.metrics.SocketError("send")
		c.invalidate()
		return 0, e
	}

	c.opts.metrics.Written(n)
	return n, nil
}

// Disconnect closes the descriptor and invalidates the handle.
func (c *Conn) Disconnect() error {
	if c.fd < 0 {
		return errs.NewInvalidDescriptorErr()
	}

	fd := c.fd
	c.fd = consts.InvalidFd
	c.opts.metrics.FdClosed()
	if err := unix.Close(fd); err != nil {
		e := errs.NewCloseErr().WithErr(err)
		logs.Conn().Error(e.Error(), zap.Int(consts.LogFieldFd, fd))
		return e
	}
	return nil
}

// Close releases the descriptor if the handle still owns one.
func (c *Conn) Close() error {
	if !c.Valid() {
		return nil
	}
	return c.Disconnect()
}

func (c *Conn) invalidate() {
	if c.fd < 0 {
		return
	}
	_ = unix.Close(c.fd)
	c.fd = consts.InvalidFd
	c.opts.metrics.FdClosed()
}

func (c *Conn) Valid() bool {
	return c.fd >= 0
}

func (c *Conn) Fd() int {
	return c.fd
}

// Timeout returns the last receive timeout set, in seconds.
func (c *Conn) Timeout() int {
	return c.tout
}

func (c *Conn) LocalAddr() net.Addr {
	if c.fd < 0 {
		return nil
	}
	sa, err := unix.Getsockname(c.fd)
	if err != nil {
		logs.Conn().Warn(errs.NewSockNameErr().WithErr(err).Error(), zap.Int(consts.LogFieldFd, c.fd))
		return nil
	}
	if addr := toTCPAddr(sa); addr != nil {
		return addr
	}
	return nil
}

func (c *Conn) RemoteAddr() net.Addr {
	if c.fd < 0 {
		return nil
	}
	if c.raddr != nil {
		return toTCPAddr(c.raddr)
	}
	sa, err := unix.Getpeername(c.fd)
	if err != nil {
		return nil
	}
	if addr := toTCPAddr(sa); addr != nil {
		return addr
	}
	return nil
}

func (c *Conn) String() string {
	return fmt.Sprintf("tcp.Conn{fd: %d, remote: %v}", c.fd, c.RemoteAddr())
}

func ipString(addr [4]byte) string {
	return net.IPv4(addr[0], addr[1], addr[2], addr[3]).String()
}
