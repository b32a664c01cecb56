// Package logger configures zap and provides request-scoped logging for gin.
package logger

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CorrelationIDHeader carries the request correlation id in both directions.
const CorrelationIDHeader = "X-Correlation-ID"

const correlationIDKey = "correlationID"

type ctxKey struct{}

// Init builds a logger from LOG_LEVEL and LOG_FORMAT and installs it as the zap global.
func Init() (*zap.Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "console") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level := zapcore.InfoLevel
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := level.Set(strings.ToLower(raw)); err != nil {
			level = zapcore.InfoLevel
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	logg, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logg)
	return logg, nil
}

// Middleware assigns a correlation id to every request and logs its outcome.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := strings.TrimSpace(c.GetHeader(CorrelationIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationIDKey, id)
		c.Header(CorrelationIDHeader, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, id))

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("correlation_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		logg := zap.L()
		switch {
		case status >= 500:
			logg.Error("http request", fields...)
		case status >= 400:
			logg.Warn("http request", fields...)
		default:
			logg.Info("http request", fields...)
		}
	}
}

// CorrelationID returns the id assigned by Middleware, or "" outside of it.
func CorrelationID(c *gin.Context) string {
	return c.GetString(correlationIDKey)
}

// FromContext returns the base logger annotated with the request's correlation id, if any.
func FromContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.L()
	}
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return base.With(zap.String("correlation_id", id))
	}
	return base
}
