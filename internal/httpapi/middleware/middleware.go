// Package middleware holds the operator API's gin middleware:
// request-ID propagation, structured access logging and HTTP metrics.
//
// Grounded on the teacher's services/api-gateway/internal/middleware/
// logger.go — same uuid-per-request / slow-request-warning shape,
// adapted from fmt/zap-style fields to log/slog's key-value API.
package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xiebiao/saga-coordinator/internal/logging"
	"github.com/xiebiao/saga-coordinator/internal/obsmetrics"
)

const requestIDHeader = "X-Request-ID"

// slowRequestThreshold mirrors the teacher's 1s warning threshold.
const slowRequestThreshold = time.Second

// RequestID assigns (or propagates, if the caller already set one) a
// request ID and stashes it on both the gin context and the request's
// context.Context so downstream logging and the communicator can pick
// it up.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Set("request_id", requestID)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// AccessLog logs one line per request, at Warn level if it exceeded
// slowRequestThreshold. It times HTTP requests only; a saga's own
// execution time is not checked against any threshold.
func AccessLog(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		requestID, _ := c.Get("request_id")
		fields := []interface{}{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed_ms", elapsed.Milliseconds(),
		}

		if elapsed > slowRequestThreshold {
			log.Warn("slow request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

// Metrics records every request's outcome into m (nil-safe).
func Metrics(m *obsmetrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveHTTPRequest(c.Request.Method, c.FullPath(), statusLabel(c.Writer.Status()), time.Since(start))
	}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
