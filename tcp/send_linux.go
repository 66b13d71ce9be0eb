package tcp

import "golang.org/x/sys/unix"

// 对端已关闭时返回 EPIPE，不产生 SIGPIPE
const sendFlags = unix.MSG_NOSIGNAL
