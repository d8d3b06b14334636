// Package logger は logrus による構造化ログとリクエスト単位のロガーを提供します。
package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	contextKey      = "logger.entry"
	requestIDHeader = "X-Request-ID"
)

// Setup はグローバルロガーのレベルと出力形式を設定します。
func Setup(level, format string) {
	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})
	}

	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("unknown log level %q, falling back to info", level)
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

// Middleware はリクエストIDを割り当て、アクセスログを出力するミドルウェアです。
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		entry := log.WithFields(log.Fields{
			"requestId": requestID,
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
		})
		c.Set(contextKey, entry)

		c.Next()

		entry = entry.WithFields(log.Fields{
			"status":   c.Writer.Status(),
			"latency":  time.Since(start).String(),
			"clientIp": c.ClientIP(),
		})
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request completed")
		case status >= 400:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}

// From はリクエストに紐づくロガーを返します。ミドルウェア未適用時は標準ロガーを返します。
func From(c *gin.Context) *log.Entry {
	if c != nil {
		if v, ok := c.Get(contextKey); ok {
			if entry, ok := v.(*log.Entry); ok {
				return entry
			}
		}
	}
	return log.NewEntry(log.StandardLogger())
}
