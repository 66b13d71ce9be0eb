//go:build unix

package tcp

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestParseIPv4(t *testing.T) {
	addr, ok := parseIPv4("192.168.4.1")
	assert.True(t, ok)
	assert.Equal(t, [4]byte{192, 168, 4, 1}, addr)

	for _, bad := range []string{"", "256.0.0.1", "::1", "localhost", "1.2.3"} {
		_, ok = parseIPv4(bad)
		assert.False(t, ok, bad)
	}
}

func TestIpv4FromUint32(t *testing.T) {
	assert.Equal(t, [4]byte{127, 0, 0, 1}, ipv4FromUint32(0x7F000001))
	assert.Equal(t, [4]byte{10, 0, 1, 2}, ipv4FromUint32(0x0A000102))
	assert.Equal(t, [4]byte{}, ipv4FromUint32(0))

	// 与 lwIP s_addr 的内存布局不同：按小端读出的 127.0.0.1 在这里是 1.0.0.127
	lwipLoopback := binary.LittleEndian.Uint32([]byte{127, 0, 0, 1})
	assert.Equal(t, [4]byte{1, 0, 0, 127}, ipv4FromUint32(lwipLoopback))
}

func TestToTCPAddr(t *testing.T) {
	addr := toTCPAddr(&unix.SockaddrInet4{Port: 8014, Addr: [4]byte{127, 0, 0, 1}})
	assert.Equal(t, "127.0.0.1:8014", addr.String())
	assert.Nil(t, toTCPAddr(&unix.SockaddrInet6{}))
}

func TestIgnoringEINTR(t *testing.T) {
	calls := 0
	n, err := ignoringEINTR(func() (int, error) {
		calls++
		if calls < 3 {
			return -1, unix.EINTR
		}
		return 4, nil
	})
	assert.Nil(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 3, calls)
}
