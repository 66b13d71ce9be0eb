package logs

import (
	"github.com/Trinoooo/iot_tcp/consts"
	"go.uber.org/zap"
)

// ComponentLogger 带 component 字段的 logger，对应原 TAG。
type ComponentLogger struct {
	l *zap.Logger
}

func newComponentLogger(component string) *ComponentLogger {
	return &ComponentLogger{
		l: Logger.With(zap.String(consts.LogFieldComponent, component)),
	}
}

var (
	connLogger    *ComponentLogger
	serverLogger  *ComponentLogger
	serviceLogger *ComponentLogger
)

func init() {
	connLogger = newComponentLogger(consts.ComponentConnection)
	serverLogger = newComponentLogger(consts.ComponentServer)
	serviceLogger = newComponentLogger(consts.ComponentService)
}

func Conn() *ComponentLogger {
	return connLogger
}

func Server() *ComponentLogger {
	return serverLogger
}

func Service() *ComponentLogger {
	return serviceLogger
}

func (cl *ComponentLogger) Debug(msg string, fields ...zap.Field) {
	cl.l.Debug(msg, fields...)
}

func (cl *ComponentLogger) Info(msg string, fields ...zap.Field) {
	cl.l.Info(msg, fields...)
}

func (cl *ComponentLogger) Warn(msg string, fields ...zap.Field) {
	cl.l.Warn(msg, fields...)
}

func (cl *ComponentLogger) Error(msg string, fields ...zap.Field) {
	cl.l.Error(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}

func Sync() {
	_ = Logger.Sync()
}
