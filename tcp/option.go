package tcp

import "github.com/Trinoooo/iot_tcp/metrics"

type Option func(*options)

type options struct {
	metrics   *metrics.Helper
	reuseAddr bool
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMetrics 句柄操作计入 h；accept 得到的连接继承该配置。
func WithMetrics(h *metrics.Helper) Option {
	return func(o *options) {
		o.metrics = h
	}
}

// WithReuseAddr 在 bind 之前设置 SO_REUSEADDR，仅对 Server 生效。
func WithReuseAddr() Option {
	return func(o *options) {
		o.reuseAddr = true
	}
}
