package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/Trinoooo/iot_tcp/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const namespace = "iot_tcp"

// Helper 句柄层计数器。方法对 nil 接收者安全，未配置 metrics 的句柄直接跳过。
type Helper struct {
	registry *prometheus.Registry

	ConnectCounter       prometheus.Counter
	ConnectFailedCounter prometheus.Counter
	AcceptCounter        prometheus.Counter
	AcceptFailedCounter  prometheus.Counter
	BytesReadCounter     prometheus.Counter
	BytesWrittenCounter  prometheus.Counter
	SocketErrorCounter   *prometheus.CounterVec // label: op
	OpenFdGauge          prometheus.Gauge
}

func NewHelper() *Helper {
	h := &Helper{
		registry: prometheus.NewRegistry(),
		ConnectCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_total",
			Help:      "successful client connects",
		}),
		ConnectFailedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_failed_total",
			Help:      "failed client connects",
		}),
		AcceptCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accept_total",
			Help:      "accepted connections",
		}),
		AcceptFailedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accept_failed_total",
			Help:      "failed accepts, timeouts included",
		}),
		BytesReadCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_bytes_total",
		}),
		BytesWrittenCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "written_bytes_total",
		}),
		SocketErrorCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socket_error_total",
		}, []string{"op"}),
		OpenFdGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_descriptors",
		}),
	}
	h.registry.MustRegister(
		h.ConnectCounter,
		h.ConnectFailedCounter,
		h.AcceptCounter,
		h.AcceptFailedCounter,
		h.BytesReadCounter,
		h.BytesWrittenCounter,
		h.SocketErrorCounter,
		h.OpenFdGauge,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return h
}

func (h *Helper) Registry() *prometheus.Registry {
	if h == nil {
		return nil
	}
	return h.registry
}

func (h *Helper) Connected() {
	if h == nil {
		return
	}
	h.ConnectCounter.Inc()
}

func (h *Helper) ConnectFailed() {
	if h == nil {
		return
	}
	h.ConnectFailedCounter.Inc()
}

func (h *Helper) Accepted() {
	if h == nil {
		return
	}
	h.AcceptCounter.Inc()
}

func (h *Helper) AcceptFailed() {
	if h == nil {
		return
	}
	h.AcceptFailedCounter.Inc()
}

func (h *Helper) Read(n int) {
	if h == nil || n <= 0 {
		return
	}
	h.BytesReadCounter.Add(float64(n))
}

func (h *Helper) Written(n int) {
	if h == nil || n <= 0 {
		return
	}
	h.BytesWrittenCounter.Add(float64(n))
}

func (h *Helper) SocketError(op string) {
	if h == nil {
		return
	}
	h.SocketErrorCounter.WithLabelValues(op).Inc()
}

func (h *Helper) FdOpened() {
	if h == nil {
		return
	}
	h.OpenFdGauge.Inc()
}

func (h *Helper) FdClosed() {
	if h == nil {
		return
	}
	h.OpenFdGauge.Dec()
}

// Handler exposes the registry for scraping.
func (h *Helper) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})
}

// Push 周期性推送到 pushgateway，直到 ctx 结束。interval 非正数时不推送。
func (h *Helper) Push(ctx context.Context, url, job string, interval time.Duration) {
	if interval <= 0 {
		logs.Warn("prometheus pusher disabled, non-positive interval", zap.Duration("interval", interval))
		return
	}
	pusher := push.New(url, job).Gatherer(h.registry)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pusher.Add(); err != nil {
				logs.Warn("prometheus pusher push failed", zap.Error(err))
			}
		}
	}
}
