package log

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// NewContext returns a context carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// GinMiddleware stores a request scoped logger in the request context and
// logs start and completion of every request. requestID reads the id set by
// an earlier middleware.
func GinMiddleware(logger *Logger, requestID func(*gin.Context) string) gin.HandlerFunc {
	sl := NewStructuredLogger(logger.WithComponent(ComponentHTTP))
	return func(c *gin.Context) {
		start := time.Now()
		id := requestID(c)
		reqLogger := logger.With(FieldRequestID, id)
		ctx := NewContext(c.Request.Context(), reqLogger)
		c.Request = c.Request.WithContext(ctx)

		sl.LogHTTPStart(ctx, c, id)
		c.Next()
		sl.LogHTTPEnd(ctx, c, id, time.Since(start))
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPStart logs the start of an HTTP request
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, c *gin.Context, requestID string) {
	r := c.Request
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
		WithClientIP(c.ClientIP()).
		WithRequestID(requestID)

	sl.logger.InfoContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs the completion of an HTTP request
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, c *gin.Context, requestID string, d time.Duration) {
	status := c.Writer.Status()
	level := slog.LevelInfo
	if status >= 400 && status < 500 {
		level = slog.LevelWarn
	} else if status >= 500 {
		level = slog.LevelError
	}

	r := c.Request
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
		WithHTTPResponse(status, d.Milliseconds()).
		WithClientIP(c.ClientIP()).
		WithRequestID(requestID).
		WithComponent(sl.logger.component)

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogTransactionCreated logs a successfully stored transaction
func (sl *StructuredLogger) LogTransactionCreated(ctx context.Context, id int64, txType, desc string, price float64, category string) {
	fields := NewFields().
		WithTransaction(id, txType, desc, price, category).
		WithOperation(OpCreate)

	sl.logger.InfoContext(ctx, "Transaction created", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, errorType, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.
		WithError(err, errorType).
		WithOperation(operation)

	sl.logger.ErrorContext(ctx, msg, all.ToSlice()...)
}
