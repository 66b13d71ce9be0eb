//go:build unix

package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Trinoooo/iot_tcp/logs"
	"github.com/Trinoooo/iot_tcp/metrics"
	"github.com/Trinoooo/iot_tcp/service"
	pkgerrors "github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func serveAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	h := metrics.NewHelper()
	metricsCtx, cancel := context.WithCancel(ctx.Context)
	defer cancel()
	if cfg.Metrics.PushUrl != "" {
		go h.Push(metricsCtx, cfg.Metrics.PushUrl, cfg.Metrics.Job, cfg.Metrics.PushInterval)
	}
	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", h.Handler())
		httpSrv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logs.Error("metrics endpoint stopped", zap.Error(err))
			}
		}()
		defer httpSrv.Close()
	}

	es := service.NewEchoServer(cfg.Server, h)
	if err = es.Listen(); err != nil {
		return pkgerrors.Wrapf(err, "echo server listen on %d", cfg.Server.Port)
	}

	go func() {
		// bugfix: 使用缓冲通道避免执行信号处理程序之前有信号到达会被丢弃
		sig := make(chan os.Signal, 5)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		for range sig {
			logs.Info("shutdown...")
			if err := es.Close(); err != nil {
				logs.Error("server shutdown failed", zap.Error(err))
			}
		}
	}()

	return es.Serve()
}
