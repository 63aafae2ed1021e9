package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger   = zap.NewNop()
	logLevel = zap.NewAtomicLevel()
)

// NewLogger 创建服务日志，logDir 为空时只输出到控制台
func NewLogger(serviceName, logDir string) *zap.Logger {
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(os.Stdout), logLevel)
	if logDir == "" {
		logger = zap.New(consoleCore, zap.AddCaller())
		return logger
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		panic(err)
	}
	logFile := filepath.Join(logDir, serviceName+".log")

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.LevelKey = "level"
	encoderConfig.MessageKey = "msg"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	// 使用lumberjack进行日志轮转
	var writer io.Writer = &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100, // megabytes
		MaxBackups: 7,
		MaxAge:     7, // days
		Compress:   true,
	}

	fileCore := zapcore.NewCore(jsonEncoder, zapcore.AddSync(writer), logLevel)
	core := zapcore.NewTee(fileCore, consoleCore)

	logger = zap.New(core, zap.AddCaller()).With(zap.String("service", serviceName))
	return logger
}

// SetLogLevel 运行时调整日志级别，非法级别直接忽略
func SetLogLevel(level string) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return
	}
	logLevel.SetLevel(zapLevel)
	logger.Info("Log level set to", zap.String("level", level))
}

// Level 返回当前日志级别
func Level() zapcore.Level {
	return logLevel.Level()
}

// WithTrace 总是附加 trace 字段，没有 span 时为全零 id
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	return logger.With(traceFields(trace.SpanFromContext(ctx).SpanContext())...)
}

// NewLoggerWithTrace 仅在 ctx 携带有效 span 时附加 trace 字段
func NewLoggerWithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	sc := SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return logger
	}
	return logger.With(traceFields(sc)...)
}

func traceFields(sc trace.SpanContext) []zap.Field {
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
