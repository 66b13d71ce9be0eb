package utils

import "fmt"

const (
	colorError = "\033[1;31;40m[ERROR] %s\033[0m"
	colorWarn  = "\033[1;33;40m[WARN] %s\033[0m"
	colorInfo  = "\033[1;34;40m[INFO] %s\033[0m"
	colorReply = "\033[1;32;40m< %s\033[0m"
)

func WrapError(format string, args ...any) string {
	return fmt.Sprintf(colorError, fmt.Sprintf(format, args...))
}

func WrapWarn(format string, args ...any) string {
	return fmt.Sprintf(colorWarn, fmt.Sprintf(format, args...))
}

func WrapInfo(format string, args ...any) string {
	return fmt.Sprintf(colorInfo, fmt.Sprintf(format, args...))
}

// WrapReply 客户端收到的对端数据
func WrapReply(data []byte) string {
	return fmt.Sprintf(colorReply, data)
}
