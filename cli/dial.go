//go:build unix

package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Trinoooo/iot_tcp/config"
	"github.com/Trinoooo/iot_tcp/consts"
	"github.com/Trinoooo/iot_tcp/errs"
	"github.com/Trinoooo/iot_tcp/tcp"
	"github.com/Trinoooo/iot_tcp/utils"
	"github.com/chzyer/readline"
	pkgerrors "github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func connect(cfg config.ClientConfig) (*tcp.Conn, error) {
	conn := tcp.NewConn()
	if err := conn.Connect(cfg.Host, cfg.Port); err != nil {
		return nil, pkgerrors.Wrapf(err, "connect %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.Timeout > 0 {
		if err := conn.SetTimeout(cfg.Timeout); err != nil {
			return nil, pkgerrors.Wrap(err, "set client timeout")
		}
	}
	return conn, nil
}

// exchange 写一次，读一次。
func exchange(conn *tcp.Conn, data []byte) ([]byte, error) {
	if _, err := conn.Write(data); err != nil {
		return nil, err
	}
	buf := make([]byte, consts.ReadBufferSize)
	n, err := conn.Read(buf, 0)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func sendAction(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return errs.NewInvalidParamErr().WithErr(errors.New("nothing to send"))
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	conn, err := connect(cfg.Client)
	if err != nil {
		return err
	}
	defer conn.Close()

	reply, err := exchange(conn, []byte(strings.Join(ctx.Args().Slice(), " ")))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.App.Writer, string(reply))
	return err
}

func dialAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	conn, err := connect(cfg.Client)
	if err != nil {
		return err
	}
	defer conn.Close()

	historyFile, err := utils.EnsureDir(filepath.Join(consts.BaseDir, "history", "dial_history"))
	if err != nil {
		return err
	}
	input, err := readline.NewEx(&readline.Config{
		Prompt:      fmt.Sprintf("%s:%d> ", cfg.Client.Host, cfg.Client.Port),
		HistoryFile: historyFile,
	})
	if err != nil {
		return err
	}
	defer input.Close()

	out := ctx.App.Writer
	for {
		line, err := input.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if strings.EqualFold(line, "exit") {
			return nil
		}
		if line == "" {
			continue
		}

		reply, err := exchange(conn, []byte(line+"\n"))
		switch {
		case err == nil:
			fmt.Fprintln(out, utils.WrapReply(reply))
		case errs.IsTimeout(err):
			fmt.Fprintln(out, utils.WrapWarn("no reply within %ds", cfg.Client.Timeout))
		case errors.Is(err, io.EOF):
			fmt.Fprintln(out, utils.WrapInfo("peer closed the connection"))
			return nil
		default:
			fmt.Fprintln(out, utils.WrapError("%v", err))
			if !conn.Valid() {
				return err
			}
		}
	}
}
