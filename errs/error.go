package errs

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

type TcpErr struct {
	msg  string
	code int64
	err  error
}

// Error 输出格式：
// [错误码] 错误类型描述 ( => 包含错误详细描述 )
// 解释：(xxx) 表示可选内容
func (te *TcpErr) Error() string {
	details := fmt.Sprintf("[%d] %s", te.code, te.msg)
	if te.err != nil {
		details += fmt.Sprintf(" => %s", te.err)
	}

	return details
}

func (te *TcpErr) Code() int64 {
	return te.code
}

func (te *TcpErr) WithErr(err error) *TcpErr {
	te.err = err
	return te
}

func (te *TcpErr) Unwrap() error {
	return te.err
}

// Is matches any *TcpErr carrying the same code, so callers can compare
// against a freshly built sentinel: errors.Is(err, errs.NewTimeoutErr()).
func (te *TcpErr) Is(target error) bool {
	var other *TcpErr
	if !errors.As(target, &other) {
		return false
	}
	return other.code == te.code
}

func GetCode(err error) int64 {
	var te *TcpErr
	if errors.As(err, &te) {
		return te.code
	}
	return UnknownErrCode
}

// IsTimeout reports whether err is a receive or accept timeout.
func IsTimeout(err error) bool {
	return GetCode(err) == TimeoutErrCode
}

// Errno extracts the errno that caused err, 0 when there is none.
func Errno(err error) unix.Errno {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}

// codes are negative, like the return values of the socket calls they wrap.
const (
	UnknownErrCode           = -1
	InvalidDescriptorErrCode = -100001
	InvalidParamErrCode      = -100002
	InvalidAddressErrCode    = -100003
	AllocSocketErrCode       = -100004
	ConnectErrCode           = -100005
	SetSockOptErrCode        = -100006
	RecvErrCode              = -100007
	SendErrCode              = -100008
	CloseErrCode             = -100009
	BindErrCode              = -100010
	ListenErrCode            = -100011
	AcceptErrCode            = -100012
	TimeoutErrCode           = -100013
	SockNameErrCode          = -100014
	MkdirErrCode             = -200001
	FileNoPermissionErrCode  = -200002
	FileStatErrCode          = -200003
	LoadConfigErrCode        = -200004
)

func NewUnknownErr() *TcpErr {
	return &TcpErr{msg: "unknown error", code: UnknownErrCode}
}

func NewInvalidDescriptorErr() *TcpErr {
	return &TcpErr{msg: "socket descriptor invalid", code: InvalidDescriptorErrCode}
}

func NewInvalidParamErr() *TcpErr {
	return &TcpErr{msg: "invalid params", code: InvalidParamErrCode}
}

func NewInvalidAddressErr() *TcpErr {
	return &TcpErr{msg: "invalid ipv4 address", code: InvalidAddressErrCode}
}

func NewAllocSocketErr() *TcpErr {
	return &TcpErr{msg: "failed to allocate socket", code: AllocSocketErrCode}
}

func NewConnectErr() *TcpErr {
	return &TcpErr{msg: "connect failed", code: ConnectErrCode}
}

func NewSetSockOptErr() *TcpErr {
	return &TcpErr{msg: "set socket option failed", code: SetSockOptErrCode}
}

func NewRecvErr() *TcpErr {
	return &TcpErr{msg: "socket recv failed", code: RecvErrCode}
}

func NewSendErr() *TcpErr {
	return &TcpErr{msg: "socket send failed", code: SendErrCode}
}

func NewCloseErr() *TcpErr {
	return &TcpErr{msg: "socket close failed", code: CloseErrCode}
}

func NewBindErr() *TcpErr {
	return &TcpErr{msg: "failed to bind socket", code: BindErrCode}
}

func NewListenErr() *TcpErr {
	return &TcpErr{msg: "failed to set listen queue", code: ListenErrCode}
}

func NewAcceptErr() *TcpErr {
	return &TcpErr{msg: "accept socket failed", code: AcceptErrCode}
}

func NewTimeoutErr() *TcpErr {
	return &TcpErr{msg: "socket operation timed out", code: TimeoutErrCode}
}

func NewSockNameErr() *TcpErr {
	return &TcpErr{msg: "get socket name failed", code: SockNameErrCode}
}

func NewMkdirErr() *TcpErr {
	return &TcpErr{msg: "mkdir failed", code: MkdirErrCode}
}

func NewFileNoPermissionErr() *TcpErr {
	return &TcpErr{msg: "file no permission", code: FileNoPermissionErrCode}
}

func NewFileStatErr() *TcpErr {
	return &TcpErr{msg: "file stat failed", code: FileStatErrCode}
}

func NewLoadConfigErr() *TcpErr {
	return &TcpErr{msg: "load config failed", code: LoadConfigErrCode}
}
