//go:build unix

package cli

import (
	"github.com/Trinoooo/iot_tcp/config"
	"github.com/Trinoooo/iot_tcp/consts"
	"github.com/urfave/cli/v2"
)

var (
	flagConfig = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path of the yaml config file, defaults to ~/iot_tcp/config/config.yaml.",
		EnvVars: []string{consts.Config},
	}
	flagHost = &cli.StringFlag{
		Name:    "host",
		Aliases: []string{"h"},
		Usage:   "ipv4 address of the peer, dotted text only.",
		EnvVars: []string{consts.Host},
	}
	flagListenPort = &cli.Int64Flag{
		Name:    "port",
		Aliases: []string{"p"},
		Usage:   "listen port, 0 <= port <= 65535 are available, 0 lets the kernel choose.",
		Action: func(c *cli.Context, port int64) error {
			_, err := config.ValidatePort(port, true)
			return err
		},
		EnvVars: []string{consts.Port},
	}
	flagDialPort = &cli.Int64Flag{
		Name:    "port",
		Aliases: []string{"p"},
		Usage:   "peer port number, 0 < port <= 65535 are available.",
		Action: func(c *cli.Context, port int64) error {
			_, err := config.ValidatePort(port, false)
			return err
		},
		EnvVars: []string{consts.Port},
	}
	flagBacklog = &cli.IntFlag{
		Name:    "backlog",
		Aliases: []string{"b"},
		Usage:   "listen queue length.",
		EnvVars: []string{consts.Backlog},
	}
	flagTimeout = &cli.IntFlag{
		Name:    "timeout",
		Aliases: []string{"t"},
		Usage:   "receive timeout in seconds, 0 means unset.",
		EnvVars: []string{consts.Timeout},
	}
	flagReuseAddr = &cli.BoolFlag{
		Name:  "reuse-addr",
		Usage: "set SO_REUSEADDR on the listening socket.",
	}
	flagWorkers = &cli.IntFlag{
		Name:  "workers",
		Usage: "max goroutines serving accepted connections.",
	}
	flagMetricsListen = &cli.StringFlag{
		Name:  "metrics-listen",
		Usage: "address to expose /metrics on, e.g. :9100.",
	}
	flagPushUrl = &cli.StringFlag{
		Name:  "push-url",
		Usage: "prometheus pushgateway url.",
	}
)

type Wrapper struct {
	app *cli.App
}

func NewWrapper() *Wrapper {
	wrapper := &Wrapper{
		app: &cli.App{
			Name:    "iot_tcp",
			Usage:   "blocking ipv4 tcp handles, with an echo listener and a client to poke at devices",
			Version: "0.0.1.261019_alpha",
		},
	}
	wrapper.modifyDefaultHelp()
	wrapper.withFlags()
	wrapper.withCommands()
	wrapper.withAuthor()
	return wrapper
}

func (wrapper *Wrapper) Run(args []string) error {
	return wrapper.app.Run(args)
}

func (wrapper *Wrapper) modifyDefaultHelp() {
	cli.HelpFlag = &cli.BoolFlag{
		Name: "help",
	}
	cli.AppHelpTemplate = consts.HelpTemplate
}

func (wrapper *Wrapper) withFlags() {
	wrapper.app.Flags = []cli.Flag{
		flagConfig,
	}
}

func (wrapper *Wrapper) withCommands() {
	wrapper.app.Commands = []*cli.Command{
		{
			Name:   "serve",
			Usage:  "run an echo listener",
			Flags:  []cli.Flag{flagListenPort, flagBacklog, flagTimeout, flagReuseAddr, flagWorkers, flagMetricsListen, flagPushUrl},
			Action: serveAction,
		},
		{
			Name:   "dial",
			Usage:  "connect and exchange lines interactively",
			Flags:  []cli.Flag{flagHost, flagDialPort, flagTimeout},
			Action: dialAction,
		},
		{
			Name:      "send",
			Usage:     "connect, send the arguments once and print one reply",
			ArgsUsage: "<message...>",
			Flags:     []cli.Flag{flagHost, flagDialPort, flagTimeout},
			Action:    sendAction,
		},
	}
}

func (wrapper *Wrapper) withAuthor() {
	wrapper.app.Authors = []*cli.Author{
		{
			Name:  "Trino",
			Email: "sujun.trinoooo@gmail.com",
		},
	}
}

// loadConfig 配置文件打底，命令行显式给出的参数覆盖。
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx.String(flagConfig.Name))
	if err != nil {
		return nil, err
	}

	if ctx.IsSet("port") {
		cfg.Server.Port = uint16(ctx.Int64("port"))
		cfg.Client.Port = uint16(ctx.Int64("port"))
	}
	if ctx.IsSet(flagHost.Name) {
		cfg.Client.Host = ctx.String(flagHost.Name)
	}
	if ctx.IsSet(flagBacklog.Name) {
		cfg.Server.Backlog = ctx.Int(flagBacklog.Name)
	}
	if ctx.IsSet(flagTimeout.Name) {
		cfg.Server.Timeout = ctx.Int(flagTimeout.Name)
		cfg.Client.Timeout = ctx.Int(flagTimeout.Name)
	}
	if ctx.IsSet(flagReuseAddr.Name) {
		cfg.Server.ReuseAddr = ctx.Bool(flagReuseAddr.Name)
	}
	if ctx.IsSet(flagWorkers.Name) {
		cfg.Server.Workers = ctx.Int(flagWorkers.Name)
	}
	if ctx.IsSet(flagMetricsListen.Name) {
		cfg.Metrics.Listen = ctx.String(flagMetricsListen.Name)
	}
	if ctx.IsSet(flagPushUrl.Name) {
		cfg.Metrics.PushUrl = ctx.String(flagPushUrl.Name)
	}
	return cfg, nil
}
