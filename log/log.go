package log

import (
	"sync/atomic"

	"github.com/hatlonely/recordx/log/logger"
)

var defaultLogger atomic.Value

func init() {
	// 默认向 stderr 输出 text 格式日志
	slog, err := logger.NewSLogWithOptions(&logger.SLogOptions{
		Level:  "info",
		Format: "text",
	})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger.Store(holder{slog})
}

type holder struct {
	logger.Logger
}

// Default 返回进程级默认日志器
func Default() logger.Logger {
	return defaultLogger.Load().(holder).Logger
}

// SetDefault 替换进程级默认日志器，nil 被忽略
func SetDefault(l logger.Logger) {
	if l != nil {
		defaultLogger.Store(holder{l})
	}
}

// NewLoggerWithOptions 创建日志器，options 为空时返回默认日志器
func NewLoggerWithOptions(options *logger.SLogOptions) (logger.Logger, error) {
	if options == nil {
		return Default(), nil
	}
	return logger.NewSLogWithOptions(options)
}
