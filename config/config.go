package config

import (
	"errors"
	"time"

	"github.com/Trinoooo/iot_tcp/consts"
	"github.com/Trinoooo/iot_tcp/errs"
	"github.com/Trinoooo/iot_tcp/logs"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type ServerConfig struct {
	Port      uint16
	Backlog   int
	Timeout   int // 秒，0 表示不设置
	ReuseAddr bool
	Workers   int
}

type ClientConfig struct {
	Host    string
	Port    uint16
	Timeout int
}

type MetricsConfig struct {
	PushUrl      string
	Job          string
	PushInterval time.Duration
	Listen       string
}

type Config struct {
	Server  ServerConfig
	Client  ClientConfig
	Metrics MetricsConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(consts.ConfigServerPort, consts.DefaultPort)
	v.SetDefault(consts.ConfigServerBacklog, consts.DefaultBacklog)
	v.SetDefault(consts.ConfigServerTimeout, 1)
	v.SetDefault(consts.ConfigServerReuseAddr, true)
	v.SetDefault(consts.ConfigServerWorkers, consts.DefaultWorkers)
	v.SetDefault(consts.ConfigClientHost, "127.0.0.1")
	v.SetDefault(consts.ConfigClientPort, consts.DefaultPort)
	v.SetDefault(consts.ConfigClientTimeout, 3)
	v.SetDefault(consts.ConfigMetricsJob, "iot_tcp")
	v.SetDefault(consts.ConfigMetricsInterval, 5*time.Second)
}

// Load 读取 path 指定的 yaml 配置；path 为空时在 consts.DefaultConfigPath 下查找 config.yaml。
// 配置文件不存在时使用默认值，IOT_TCP_SERVER_PORT 这类环境变量覆盖文件内容。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(consts.EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(consts.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			e := errs.NewLoadConfigErr().WithErr(err)
			logs.Error(e.Error(), zap.String(consts.LogFieldValue, path))
			return nil, e
		}
		logs.Info("config file not found, use defaults", zap.String(consts.LogFieldValue, consts.DefaultConfigPath))
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Backlog:   v.GetInt(consts.ConfigServerBacklog),
			Timeout:   v.GetInt(consts.ConfigServerTimeout),
			ReuseAddr: v.GetBool(consts.ConfigServerReuseAddr),
			Workers:   v.GetInt(consts.ConfigServerWorkers),
		},
		Client: ClientConfig{
			Host:    v.GetString(consts.ConfigClientHost),
			Timeout: v.GetInt(consts.ConfigClientTimeout),
		},
		Metrics: MetricsConfig{
			PushUrl:      v.GetString(consts.ConfigMetricsPushUrl),
			Job:          v.GetString(consts.ConfigMetricsJob),
			PushInterval: v.GetDuration(consts.ConfigMetricsInterval),
			Listen:       v.GetString(consts.ConfigMetricsListen),
		},
	}

	var err error
	if cfg.Server.Port, err = ValidatePort(v.GetInt64(consts.ConfigServerPort), true); err != nil {
		return nil, err
	}
	if cfg.Client.Port, err = ValidatePort(v.GetInt64(consts.ConfigClientPort), false); err != nil {
		return nil, err
	}
	if cfg.Server.Timeout < 0 || cfg.Client.Timeout < 0 {
		e := errs.NewInvalidParamErr()
		logs.Error(e.Error(), zap.String(consts.LogFieldParams, "timeout"))
		return nil, e
	}
	if cfg.Metrics.PushInterval <= 0 {
		e := errs.NewInvalidParamErr()
		logs.Error(e.Error(), zap.String(consts.LogFieldParams, "push_interval"), zap.Duration(consts.LogFieldValue, cfg.Metrics.PushInterval))
		return nil, e
	}
	if cfg.Server.Workers <= 0 {
		cfg.Server.Workers = consts.DefaultWorkers
	}
	return cfg, nil
}

// ValidatePort 0 < port <= 65535；allowZero 时 0 表示由内核分配。
func ValidatePort(port int64, allowZero bool) (uint16, error) {
	if port < 0 || port > consts.MaxPort || (port == 0 && !allowZero) {
		e := errs.NewInvalidParamErr()
		logs.Error(e.Error(), zap.String(consts.LogFieldParams, "port"), zap.Int64(consts.LogFieldValue, port))
		return 0, e
	}
	return uint16(port), nil
}
