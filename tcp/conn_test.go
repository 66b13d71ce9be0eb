//go:build unix

package tcp

import (
	"bytes"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/Trinoooo/iot_tcp/errs"
	"github.com/Trinoooo/iot_tcp/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const loopback = "127.0.0.1"

// newPair 返回一对已建立的连接：client 由 Connect 得到，peer 由 Accept 得到。
func newPair(t *testing.T, opts ...Option) (*Conn, *Conn) {
	t.Helper()
	srv := NewServer(opts...)
	require.Nil(t, srv.Listen(0, 1))
	t.Cleanup(func() { _ = srv.Stop() })

	client := NewConn(opts...)
	require.Nil(t, client.Connect(loopback, uint16(srv.Addr().Port)))
	t.Cleanup(func() { _ = client.Close() })

	peer, err := srv.Accept()
	require.Nil(t, err)
	t.Cleanup(func() { _ = peer.Close() })
	return client, peer
}

// closedPort 返回一个当前无人监听的端口。
func closedPort(t *testing.T) uint16 {
	t.Helper()
	srv := NewServer()
	require.Nil(t, srv.Listen(0, 1))
	port := uint16(srv.Addr().Port)
	require.Nil(t, srv.Stop())
	return port
}

func TestNewConn(t *testing.T) {
	c := NewConn()
	assert.False(t, c.Valid())
	assert.Equal(t, -1, c.Fd())
	assert.Equal(t, 0, c.Timeout())
	assert.Nil(t, c.LocalAddr())
	assert.Nil(t, c.RemoteAddr())
}

func TestConn_ConnectRefused(t *testing.T) {
	c := NewConn()
	err := c.Connect(loopback, closedPort(t))
	assert.NotNil(t, err)
	assert.Equal(t, int64(errs.ConnectErrCode), errs.GetCode(err))
	assert.Equal(t, unix.ECONNREFUSED, errs.Errno(err))
	assert.False(t, c.Valid())

	_, err = c.Read(make([]byte, 8), 0)
	assert.Equal(t, int64(errs.InvalidDescriptorErrCode), errs.GetCode(err))
	_, err = c.Write([]byte("ping"))
	assert.Equal(t, int64(errs.InvalidDescriptorErrCode), errs.GetCode(err))
}

func TestConn_ConnectInvalidAddress(t *testing.T) {
	c := NewConn()
	for _, ip := range []string{"", "300.1.1.1", "::1", "example.com"} {
		err := c.Connect(ip, 8014)
		assert.Equal(t, int64(errs.InvalidAddressErrCode), errs.GetCode(err), ip)
		assert.False(t, c.Valid())
	}
}

func TestConn_ConnectIP(t *testing.T) {
	srv := NewServer()
	require.Nil(t, srv.Listen(0, 1))
	defer srv.Stop()

	c := NewConn()
	require.Nil(t, c.ConnectIP(0x7F000001, uint16(srv.Addr().Port)))
	defer c.Close()
	assert.True(t, c.Valid())
	assert.Equal(t, fmt.Sprintf("%s:%d", loopback, srv.Addr().Port), c.RemoteAddr().String())

	peer, err := srv.Accept()
	require.Nil(t, err)
	defer peer.Close()
	assert.Equal(t, c.LocalAddr().String(), peer.RemoteAddr().String())
}

func TestConn_ReadWrite(t *testing.T) {
	client, peer := newPair(t)

	msg := []byte("hello from esp")
	n, err := client.Write(msg)
	assert.Nil(t, err)
	assert.Equal(t, len(msg), n)

	buf := make([]byte, 64)
	n, err = peer.Read(buf, 1)
	assert.Nil(t, err)
	assert.Equal(t, msg, buf[:n])

	reply := bytes.Repeat([]byte{0xA5}, 1024)
	n, err = peer.Write(reply)
	assert.Nil(t, err)
	assert.Equal(t, len(reply), n)

	got := make([]byte, 0, len(reply))
	for len(got) < len(reply) {
		n, err = client.Read(buf, 1)
		require.Nil(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, reply, got)
}

func TestConn_ReadTimeout(t *testing.T) {
	_, peer := newPair(t)

	start := time.Now()
	n, err := peer.Read(make([]byte, 8), 1)
	assert.Equal(t, 0, n)
	assert.True(t, errs.IsTimeout(err))
	assert.True(t, time.Since(start) >= 900*time.Millisecond)
	assert.Equal(t, 1, peer.Timeout())

	// 超时不使句柄失效
	assert.True(t, peer.Valid())
}

func TestConn_SetTimeout(t *testing.T) {
	client, _ := newPair(t)

	err := client.SetTimeout(-1)
	assert.Equal(t, int64(errs.InvalidParamErrCode), errs.GetCode(err))
	assert.True(t, client.Valid())

	assert.Nil(t, client.SetTimeout(2))
	assert.Equal(t, 2, client.Timeout())
	assert.Nil(t, client.SetTimeout(0))
	assert.Equal(t, 0, client.Timeout())

	err = NewConn().SetTimeout(1)
	assert.Equal(t, int64(errs.InvalidDescriptorErrCode), errs.GetCode(err))
}

func TestConn_PeerClosed(t *testing.T) {
	client, peer := newPair(t)
	assert.Nil(t, client.Disconnect())

	n, err := peer.Read(make([]byte, 8), 1)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestConn_DisconnectThenIO(t *testing.T) {
	client, _ := newPair(t)

	assert.Nil(t, client.Disconnect())
	assert.False(t, client.Valid())

	err := client.Disconnect()
	assert.ErrorIs(t, err, errs.NewInvalidDescriptorErr())
	_, err = client.Read(make([]byte, 8), 0)
	assert.ErrorIs(t, err, errs.NewInvalidDescriptorErr())
	_, err = client.Write([]byte("x"))
	assert.ErrorIs(t, err, errs.NewInvalidDescriptorErr())
	assert.Nil(t, client.Close())
}

func TestConn_Reconnect(t *testing.T) {
	c := NewConn()
	require.NotNil(t, c.Connect(loopback, closedPort(t)))

	// 失败后句柄可以重新 connect，重新分配描述符
	srv := NewServer()
	require.Nil(t, srv.Listen(0, 1))
	defer srv.Stop()
	require.Nil(t, c.Connect(loopback, uint16(srv.Addr().Port)))
	defer c.Close()
	assert.True(t, c.Valid())
}

func TestConn_Metrics(t *testing.T) {
	h := metrics.NewHelper()
	client, peer := newPair(t, WithMetrics(h))

	_, err := client.Write([]byte("12345"))
	require.Nil(t, err)
	buf := make([]byte, 5)
	n, err := peer.Read(buf, 1)
	require.Nil(t, err)
	require.Equal(t, 5, n)

	assert.Equal(t, float64(1), testutil.ToFloat64(h.ConnectCounter))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.AcceptCounter))
	assert.Equal(t, float64(5), testutil.ToFloat64(h.BytesWrittenCounter))
	assert.Equal(t, float64(5), testutil.ToFloat64(h.BytesReadCounter))
	// listener + client + accepted
	assert.Equal(t, float64(3), testutil.ToFloat64(h.OpenFdGauge))

	require.Nil(t, client.Disconnect())
	assert.Equal(t, float64(2), testutil.ToFloat64(h.OpenFdGauge))
}

func TestConn_WriteFailureInvalidates(t *testing.T) {
	client, peer := newPair(t)

	// linger 0：close 时直接发 RST
	require.Nil(t, unix.SetsockoptLinger(peer.Fd(), unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{Onoff: 1, Linger: 0}))
	require.Nil(t, peer.Disconnect())

	var err error
	for i := 0; i < 100 && err == nil; i++ {
		_, err = client.Write([]byte("still there?"))
		if err == nil {
			time.Sleep(10 * time.Millisecond)
		}
	}
	require.NotNil(t, err)
	assert.Equal(t, int64(errs.SendErrCode), errs.GetCode(err))
	assert.False(t, client.Valid())
	assert.Equal(t, -1, client.Fd())

	_, err = client.Write([]byte("again"))
	assert.Equal(t, int64(errs.InvalidDescriptorErrCode), errs.GetCode(err))
}

func TestConn_WriteEmpty(t *testing.T) {
	client, _ := newPair(t)

	n, err := client.Write(nil)
	assert.Nil(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, client.Valid())
}
