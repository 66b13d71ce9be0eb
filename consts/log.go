package consts

const (
	LogFieldComponent = "component"
	LogFieldFd        = "fd"
	LogFieldIp        = "ip"
	LogFieldPort      = "port"
	LogFieldBacklog   = "backlog"
	LogFieldTimeout   = "timeout"
	LogFieldLength    = "length"
	LogFieldRemote    = "remote"
	LogFieldParams    = "params"
	LogFieldValue     = "value"

	ComponentConnection = "tcp_connection"
	ComponentServer     = "tcp_server"
	ComponentService    = "echo_service"
)
