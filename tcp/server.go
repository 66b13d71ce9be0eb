//go:build unix

package tcp

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/Trinoooo/iot_tcp/consts"
	"github.com/Trinoooo/iot_tcp/errs"
	"github.com/Trinoooo/iot_tcp/logs"
	"golang.org/x/sys/unix"
	"go.uber.org/zap"
)

// Server owns one listening IPv4 TCP socket. Accepted connections belong to
// the caller, not to the Server.
//
// Apart from Stop, which may be called from another goroutine to unblock a
// pending Accept, a Server is not safe for concurrent use.
type Server struct {
	fd atomic.Int64
	// Accept holds it shared across load and accept, close takes it
	// exclusively, so a pending accept never runs on a reused descriptor number.
	closeMu sync.RWMutex
	tout    int
	opts    options
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		opts: buildOptions(opts),
	}
	s.fd.Store(consts.InvalidFd)
	return s
}

// Listen binds INADDR_ANY:port and starts listening with the given backlog.
// Any failure closes the descriptor. Port 0 picks an ephemeral port, see Addr.
func (s *Server) Listen(port uint16, backlog int) error {
	fd := int(s.fd.Load())
	if fd < 0 {
		var err error
		fd, err = newSocket()
		if err != nil {
			e := errs.NewAllocSocketErr().WithErr(err)
			logs.Server().Error("failed to create sock", zap.Error(e))
			s.opts.metrics.SocketError("socket")
			return e
		}
		s.fd.Store(int64(fd))
		s.opts.metrics.FdOpened()
	}

	if s.opts.reuseAddr {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			e := errs.NewSetSockOptErr().WithErr(err)
			logs.Server().Error("failed to set reuse addr", zap.Error(e), zap.Int(consts.LogFieldFd, fd))
			s.opts.metrics.SocketError("setsockopt")
			s.invalidate()
			return e
		}
	}

	sa := &unix.SockaddrInet4{Port: int(port)}
	if err := unix.Bind(fd, sa); err != nil {
		e := errs.NewBindErr().WithErr(err)
		logs.Server().Error("failed to bind sock", zap.Error(e), zap.Uint16(consts.LogFieldPort, port))
		s.opts.metrics.SocketError("bind")
		s.invalidate()
		return e
	}

	if err := unix.Listen(fd, backlog); err != nil {
		e := errs.NewListenErr().WithErr(err)
		logs.Server().Error("failed to set listen queue", zap.Error(e), zap.Int(consts.LogFieldBacklog, backlog))
		s.opts.metrics.SocketError("listen")
		s.invalidate()
		return e
	}

	logs.Server().Info("listening",
		zap.Uint16(consts.LogFieldPort, port),
		zap.Int(consts.LogFieldBacklog, backlog),
		zap.Int(consts.LogFieldFd, fd),
	)
	return nil
}

// Accept blocks until a connection arrives and returns a Conn owning it.
// With a receive timeout set on the listener, an expired wait returns an
// error satisfying errs.IsTimeout.
func (s *Server) Accept() (*Conn, error) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()

	fd := int(s.fd.Load())
	if fd < 0 {
		e := errs.NewInvalidDescriptorErr()
		logs.Server().Error("tcp server socket error", zap.Error(e))
		return nil, e
	}

	var sa unix.Sockaddr
	nfd, err := ignoringEINTR(func() (int, error) {
		var (
			n   int
			err error
		)
		n, sa, err = unix.Accept(fd)
		return n, err
	})
	if err != nil {
		s.opts.metrics.AcceptFailed()
		if isTimeoutErrno(err) {
			return nil, errs.NewTimeoutErr().WithErr(err)
		}
		if !s.Valid() {
			// stopped while blocked
			return nil, errs.NewInvalidDescriptorErr().WithErr(err)
		}
		e := errs.NewAcceptErr().WithErr(err)
		logs.Server().Error("accept socket error", zap.Error(e), zap.Int(consts.LogFieldFd, fd))
		s.opts.metrics.SocketError("accept")
		return nil, e
	}
	unix.CloseOnExec(nfd)

	raddr, _ := sa.(*unix.SockaddrInet4)
	conn := newAcceptedConn(nfd, raddr, s.opts)
	s.opts.metrics.Accepted()
	s.opts.metrics.FdOpened()
	logs.Server().Debug("accepted", zap.Int(consts.LogFieldFd, nfd), zap.Any(consts.LogFieldRemote, conn.RemoteAddr()))
	return conn, nil
}

// SetTimeout sets a receive timeout on the listening socket, which bounds
// how long Accept blocks. 0 clears it.
func (s *Server) SetTimeout(seconds int) error {
	if seconds < 0 {
		e := errs.NewInvalidParamErr()
		logs.Server().Error(e.Error(), zap.String(consts.LogFieldParams, "timeout"), zap.Int(consts.LogFieldValue, seconds))
		return e
	}
	fd := int(s.fd.Load())
	if fd < 0 {
		return errs.NewInvalidDescriptorErr()
	}

	s.tout = seconds
	if err := setRecvTimeout(fd, seconds); err != nil {
		e := errs.NewSetSockOptErr().WithErr(err)
		logs.Server().Error("failed to set accept timeout", zap.Error(e), zap.Int(consts.LogFieldFd, fd))
		s.opts.metrics.SocketError("setsockopt")
		s.invalidate()
		return e
	}
	return nil
}

// Stop closes the listening descriptor and invalidates the handle. Calling
// it again is a no-op. Stop returns only once a pending Accept has left the
// descriptor; where shutdown does not wake accept (non-linux), that is when
// the accept timeout expires or a connection arrives.
func (s *Server) Stop() error {
	fd := int(s.fd.Swap(consts.InvalidFd))
	if fd < 0 {
		return nil
	}
	s.opts.metrics.FdClosed()

	// close alone does not wake a thread blocked in accept on linux
	_ = unix.Shutdown(fd, unix.SHUT_RDWR)
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if err := unix.Close(fd); err != nil {
		e := errs.NewCloseErr().WithErr(err)
		logs.Server().Error(e.Error(), zap.Int(consts.LogFieldFd, fd))
		return e
	}
	logs.Server().Info("stopped", zap.Int(consts.LogFieldFd, fd))
	return nil
}

func (s *Server) Close() error {
	return s.Stop()
}

func (s *Server) invalidate() {
	fd := int(s.fd.Swap(consts.InvalidFd))
	if fd < 0 {
		return
	}
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	_ = unix.Close(fd)
	s.opts.metrics.FdClosed()
}

func (s *Server) Valid() bool {
	return s.fd.Load() >= 0
}

func (s *Server) Fd() int {
	return int(s.fd.Load())
}

func (s *Server) Timeout() int {
	return s.tout
}

// Addr returns the bound address, useful after listening on port 0.
func (s *Server) Addr() *net.TCPAddr {
	fd := int(s.fd.Load())
	if fd < 0 {
		return nil
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		logs.Server().Warn(errs.NewSockNameErr().WithErr(err).Error(), zap.Int(consts.LogFieldFd, fd))
		return nil
	}
	return toTCPAddr(sa)
}
