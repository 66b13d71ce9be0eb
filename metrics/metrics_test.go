package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHelper_NilSafe(t *testing.T) {
	var h *Helper
	assert.NotPanics(t, func() {
		h.Connected()
		h.ConnectFailed()
		h.Accepted()
		h.AcceptFailed()
		h.Read(10)
		h.Written(10)
		h.SocketError("recv")
		h.FdOpened()
		h.FdClosed()
	})
	assert.Nil(t, h.Registry())
}

func TestHelper_Counters(t *testing.T) {
	h := NewHelper()
	h.Connected()
	h.Accepted()
	h.Accepted()
	h.Read(5)
	h.Read(0)
	h.Written(7)
	h.SocketError("send")
	h.FdOpened()
	h.FdOpened()
	h.FdClosed()

	assert.Equal(t, float64(1), testutil.ToFloat64(h.ConnectCounter))
	assert.Equal(t, float64(2), testutil.ToFloat64(h.AcceptCounter))
	assert.Equal(t, float64(5), testutil.ToFloat64(h.BytesReadCounter))
	assert.Equal(t, float64(7), testutil.ToFloat64(h.BytesWrittenCounter))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.SocketErrorCounter.WithLabelValues("send")))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.OpenFdGauge))
}

func TestHelper_Handler(t *testing.T) {
	h := NewHelper()
	h.Connected()

	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "iot_tcp_connect_total 1"))
}

func TestHelper_PushNonPositiveInterval(t *testing.T) {
	h := NewHelper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, interval := range []time.Duration{0, -time.Second} {
		done := make(chan struct{})
		assert.NotPanics(t, func() {
			defer close(done)
			h.Push(ctx, "http://127.0.0.1:9091", "job", interval)
		})
		<-done
	}
}

func TestHelper_PushStopsOnCancel(t *testing.T) {
	h := NewHelper()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Push(ctx, "http://127.0.0.1:1", "job", time.Hour)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("push loop still running after cancel")
	}
}
