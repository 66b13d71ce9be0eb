package consts

const (
	EnvPrefix = "IOT_TCP"
	Env       = "IOT_TCP_ENV"     // test 环境使用 development logger
	Host      = "IOT_TCP_HOST"    // 客户端目标主机，只支持 ipv4 文本
	Port      = "IOT_TCP_PORT"    // 端口
	Backlog   = "IOT_TCP_BACKLOG" // listen 队列长度
	Timeout   = "IOT_TCP_TIMEOUT" // 接收超时（秒）
	Config    = "IOT_TCP_CONFIG"  // 配置文件路径
)
