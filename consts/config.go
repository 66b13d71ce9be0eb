package consts

import (
	"fmt"

	"github.com/mitchellh/go-homedir"
)

const (
	ConfigServerPort      = "server.port"
	ConfigServerBacklog   = "server.backlog"
	ConfigServerTimeout   = "server.timeout"
	ConfigServerReuseAddr = "server.reuse_addr"
	ConfigServerWorkers   = "server.workers"
	ConfigClientHost      = "client.host"
	ConfigClientPort      = "client.port"
	ConfigClientTimeout   = "client.timeout"
	ConfigMetricsPushUrl  = "metrics.push_url"
	ConfigMetricsJob      = "metrics.job"
	ConfigMetricsInterval = "metrics.push_interval"
	ConfigMetricsListen   = "metrics.listen"
)

func init() {
	home, _ := homedir.Dir()
	BaseDir = fmt.Sprintf("%s/iot_tcp", home)
	DefaultConfigPath = fmt.Sprintf("%s/config", BaseDir)
}

var (
	BaseDir           string
	DefaultConfigPath string
)
