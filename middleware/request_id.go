package middleware

import (
	"regexp"
	"time"
	"zero-tags/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// RequestIDHeader HTTP 头部中的请求 ID 字段名
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey 在 Gin Context 中存储请求 ID 的键名
	RequestIDKey = "request_id"
)

// 客户端传入的请求 ID 会写进日志和响应头，只接受 8 到 64 个字母、数字、'.'、'_' 或 '-'。
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// 出现在请求完成日志中的路由参数及其日志字段名。
var loggedParams = [][2]string{
	{"id", "track_id"},
	{"index", "index"},
	{"job_id", "job_id"},
}

// resolveRequestID 沿用合法的请求头，否则生成新的 UUID。
func resolveRequestID(header string) string {
	if validRequestID.MatchString(header) {
		return header
	}
	return uuid.NewString()
}

// RequestID 是一个 Gin 中间件，为每个请求确定请求 ID 并记录请求的开始和完成。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(RequestIDHeader)
		requestID := resolveRequestID(header)
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		entry := logger.WithRequestID(requestID).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})
		if header != "" && header != requestID {
			entry.Warn("请求头中的请求 ID 不合法，已重新生成")
		}
		entry.WithFields(logrus.Fields{
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}).Info("请求开始")

		c.Next()

		fields := logrus.Fields{
			"route":      c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		}
		for _, p := range loggedParams {
			if v := c.Param(p[0]); v != "" {
				fields[p[1]] = v
			}
		}
		finish := entry.WithFields(fields)

		switch status := c.Writer.Status(); {
		case status >= 500:
			finish.Error("请求完成（服务器错误）")
		case status >= 400:
			finish.Warn("请求完成（客户端错误）")
		default:
			finish.Info("请求完成")
		}
	}
}

// GetRequestID 从 Gin Context 中获取请求 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
