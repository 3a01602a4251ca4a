package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Plugin 即 zapcore.Core，决定日志写到哪里、用什么格式
type Plugin = zapcore.Core

var DefaultEncoderConfig = func() zapcore.EncoderConfig {
	c := zap.NewProductionEncoderConfig()
	c.EncodeTime = zapcore.ISO8601TimeEncoder
	return c
}()

var DefaultEncoder = zapcore.NewJSONEncoder(DefaultEncoderConfig)

var DefaultOption = []zap.Option{zap.AddCaller()}

func NewLogger(plugin zapcore.Core, options ...zap.Option) *zap.Logger {
	return zap.New(plugin, append(DefaultOption, options...)...)
}

func NewPlugin(writer zapcore.WriteSyncer, enabler zapcore.LevelEnabler) Plugin {
	return zapcore.NewCore(DefaultEncoder, writer, enabler)
}

func NewStdoutPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(zapcore.Lock(zapcore.AddSync(os.Stdout)), enabler)
}

func NewStderrPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(zapcore.Lock(zapcore.AddSync(os.Stderr)), enabler)
}

// 单个文件最大 100M，保留 7 天
func DefaultLumberjackLogger() *lumberjack.Logger {
	return &lumberjack.Logger{
		MaxSize:   100,
		MaxAge:    7,
		LocalTime: true,
		Compress:  false,
	}
}

// NewFilePlugin 按大小切割的文件日志，返回的 io.Closer 在退出时关闭文件
func NewFilePlugin(filePath string, enabler zapcore.LevelEnabler, opts ...FileOption) (Plugin, io.Closer) {
	writer := DefaultLumberjackLogger()
	writer.Filename = filePath
	for _, opt := range opts {
		opt(writer)
	}
	return NewPlugin(zapcore.AddSync(writer), enabler), writer
}

type FileOption func(l *lumberjack.Logger)

func WithMaxSize(mb int) FileOption {
	return func(l *lumberjack.Logger) {
		if mb > 0 {
			l.MaxSize = mb
		}
	}
}

func WithMaxBackups(n int) FileOption {
	return func(l *lumberjack.Logger) {
		if n > 0 {
			l.MaxBackups = n
		}
	}
}

// ParseLevel 无法识别时返回 info
func ParseLevel(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}
