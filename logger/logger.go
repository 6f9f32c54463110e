package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultLogLevel 是默认的日志级别
	DefaultLogLevel = "info"
	// TimestampFormat 是日志中的时间格式
	TimestampFormat = "2006-01-02 15:04:05"
)

var log *logrus.Logger

func newLogger() *logrus.Logger {
	l := logrus.New()
	// 设置日志格式为 JSON，便于结构化处理
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: TimestampFormat,
	})
	l.SetOutput(os.Stdout)
	return l
}

// Init 初始化日志系统
// logFilePath 为空时只输出到标准输出。日志级别优先取 LOG_LEVEL 环境变量，其次取 level。
func Init(logFilePath, level string) (*os.File, error) {
	log = newLogger()
	log.SetLevel(resolveLevel(level))

	if logFilePath == "" {
		return nil, nil
	}

	// 打开日志文件
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Warnf("无法打开日志文件 %s: %v，日志将仅输出到标准输出", logFilePath, err)
		return nil, err
	}

	// 同时输出到文件和标准输出
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	return logFile, nil
}

// resolveLevel 解析日志级别，无效时回退到默认级别
func resolveLevel(level string) logrus.Level {
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	if level == "" {
		level = DefaultLogLevel
	}
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Warnf("无效的日志级别 '%s'，使用默认级别 '%s'", level, DefaultLogLevel)
		return logrus.InfoLevel
	}
	return parsed
}

// GetLogger 返回全局日志实例
func GetLogger() *logrus.Logger {
	if log == nil {
		log = newLogger()
	}
	return log
}

// SetOutput 修改全局日志的输出位置，测试中用于静默或捕获日志
func SetOutput(w io.Writer) {
	GetLogger().SetOutput(w)
}

// WithRequestID 创建带有请求 ID 的日志条目
func WithRequestID(requestID string) *logrus.Entry {
	return GetLogger().WithField("request_id", requestID)
}

// WithFields 创建带有多个字段的日志条目
func WithFields(fields logrus.Fields) *logrus.Entry {
	return GetLogger().WithFields(fields)
}

// Debugf 格式化记录调试级别日志
func Debugf(format string, args ...interface{}) {
	GetLogger().Debugf(format, args...)
}

// Info 记录信息级别日志
func Info(args ...interface{}) {
	GetLogger().Info(args...)
}

// Infof 格式化记录信息级别日志
func Infof(format string, args ...interface{}) {
	GetLogger().Infof(format, args...)
}

// Warn 记录警告级别日志
func Warn(args ...interface{}) {
	GetLogger().Warn(args...)
}

// Warnf 格式化记录警告级别日志
func Warnf(format string, args ...interface{}) {
	GetLogger().Warnf(format, args...)
}

// Error 记录错误级别日志
func Error(args ...interface{}) {
	GetLogger().Error(args...)
}

// Errorf 格式化记录错误级别日志
func Errorf(format string, args ...interface{}) {
	GetLogger().Errorf(format, args...)
}

// Fatal 记录致命错误并退出
func Fatal(args ...interface{}) {
	GetLogger().Fatal(args...)
}

// Fatalf 格式化记录致命错误并退出
func Fatalf(format string, args ...interface{}) {
	GetLogger().Fatalf(format, args...)
}
