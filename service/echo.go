//go:build unix

package service

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/Trinoooo/iot_tcp/config"
	"github.com/Trinoooo/iot_tcp/consts"
	"github.com/Trinoooo/iot_tcp/errs"
	"github.com/Trinoooo/iot_tcp/logs"
	"github.com/Trinoooo/iot_tcp/metrics"
	"github.com/Trinoooo/iot_tcp/tcp"
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/luci/go-render/render"
	"go.uber.org/zap"
)

// EchoServer 回显服务：acceptor 单协程，每个连接交给 gopool 处理。
type EchoServer struct {
	cfg         config.ServerConfig
	pollTimeout int
	srv         *tcp.Server
	pool        gopool.Pool
	opts        []tcp.Option

	// dispatchMu 保证 Close 置位 closed 之后不再有 done.Add
	dispatchMu sync.Mutex
	closed     atomic.Bool
	stop       chan struct{}
	done       sync.WaitGroup
}

func NewEchoServer(cfg config.ServerConfig, h *metrics.Helper) *EchoServer {
	opts := []tcp.Option{tcp.WithMetrics(h)}
	if cfg.ReuseAddr {
		opts = append(opts, tcp.WithReuseAddr())
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = consts.DefaultWorkers
	}

	return &EchoServer{
		cfg: cfg,
		// 没有超时的话 handler 会一直阻塞在 recv 上，Close 无法等到它们退出
		pollTimeout: max(cfg.Timeout, 1),
		srv:         tcp.NewServer(opts...),
		pool:        gopool.NewPool("echo_handlers", int32(workers), gopool.NewConfig()),
		opts:        opts,
		stop:        make(chan struct{}),
	}
}

func (es *EchoServer) Listen() error {
	logs.Service().Info(fmt.Sprintf("echo server config: %s", render.Render(es.cfg)))
	if err := es.srv.Listen(es.cfg.Port, es.cfg.Backlog); err != nil {
		return err
	}
	// accept 超时后回到循环检查 stop
	return es.srv.SetTimeout(es.pollTimeout)
}

func (es *EchoServer) Addr() *net.TCPAddr {
	return es.srv.Addr()
}

// Serve 阻塞运行 accept 循环，Close 之后返回 nil。
func (es *EchoServer) Serve() error {
	for {
		select {
		case <-es.stop:
			return nil
		default:
		}

		conn, err := es.srv.Accept()
		if err != nil {
			if errs.IsTimeout(err) {
				continue
			}
			if es.closed.Load() {
				logs.Service().Info("close called, exit gracefully")
				return nil
			}
			logs.Service().Error("accept failed, stop serving", zap.Error(err))
			return err
		}

		if !es.dispatch(conn) {
			logs.Service().Info("close called, exit gracefully")
			return nil
		}
	}
}

// dispatch 把连接交给 pool；Close 已经开始时直接关闭连接并返回 false。
func (es *EchoServer) dispatch(conn *tcp.Conn) bool {
	es.dispatchMu.Lock()
	defer es.dispatchMu.Unlock()

	if es.closed.Load() {
		if err := conn.Close(); err != nil {
			logs.Service().Warn("close connection failed", zap.Error(err))
		}
		return false
	}

	es.done.Add(1)
	es.pool.Go(func() {
		defer es.done.Done()
		es.handle(conn)
	})
	return true
}

func (es *EchoServer) handle(conn *tcp.Conn) {
	defer func() {
		if err := conn.Close(); err != nil {
			logs.Service().Warn("close connection failed", zap.Error(err))
		}
	}()

	remote := conn.RemoteAddr()
	logs.Service().Debug("serve connection", zap.Any(consts.LogFieldRemote, remote), zap.Int(consts.LogFieldFd, conn.Fd()))
	if err := conn.SetTimeout(es.pollTimeout); err != nil {
		return
	}

	buf := make([]byte, consts.ReadBufferSize)
	for {
		select {
		case <-es.stop:
			return
		default:
		}

		n, err := conn.Read(buf, 0)
		if err != nil {
			switch {
			case errs.IsTimeout(err):
				continue
			case errors.Is(err, io.EOF):
				logs.Service().Debug("peer closed", zap.Any(consts.LogFieldRemote, remote))
			default:
				logs.Service().Warn("read failed", zap.Error(err), zap.Any(consts.LogFieldRemote, remote))
			}
			return
		}

		if err = writeAll(conn, buf[:n]); err != nil {
			logs.Service().Warn("write failed", zap.Error(err), zap.Any(consts.LogFieldRemote, remote))
			return
		}
	}
}

// writeAll 句柄不重试短写，由服务层补齐。
func writeAll(conn *tcp.Conn, data []byte) error {
	for len(data) > 0 {
		n, err := conn.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// Close 停止 listener，通知所有 handler 退出并等待。重复调用无副作用。
func (es *EchoServer) Close() error {
	es.dispatchMu.Lock()
	swapped := es.closed.CompareAndSwap(false, true)
	es.dispatchMu.Unlock()
	if !swapped {
		return nil
	}

	close(es.stop)
	err := es.srv.Stop()
	es.done.Wait()
	return err
}
