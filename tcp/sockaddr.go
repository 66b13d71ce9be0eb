//go:build unix

package tcp

import (
	"encoding/binary"
	"errors"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

func parseIPv4(ip string) ([4]byte, bool) {
	var addr [4]byte
	parsed := net.ParseIP(ip).To4()
	if parsed == nil {
		return addr, false
	}
	copy(addr[:], parsed)
	return addr, true
}

// ipv4FromUint32 0x7F000001 -> 127.0.0.1
func ipv4FromUint32(ip uint32) [4]byte {
	var addr [4]byte
	binary.BigEndian.PutUint32(addr[:], ip)
	return addr
}

func toTCPAddr(sa unix.Sockaddr) *net.TCPAddr {
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok || sa4 == nil {
		return nil
	}
	return &net.TCPAddr{
		IP:   net.IPv4(sa4.Addr[0], sa4.Addr[1], sa4.Addr[2], sa4.Addr[3]),
		Port: sa4.Port,
	}
}

func newSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

func setRecvTimeout(fd int, seconds int) error {
	tv := unix.NsecToTimeval(int64(time.Duration(seconds) * time.Second))
	return unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

// ignoringEINTR 被信号打断的调用重新发起，其余错误原样返回。
func ignoringEINTR(fn func() (int, error)) (int, error) {
	for {
		n, err := fn()
		if !errors.Is(err, unix.EINTR) {
			return n, err
		}
	}
}

func isTimeoutErrno(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
