package middleware

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"procurement/internal/ids"

	"github.com/gin-gonic/gin"
)

const RequestIDHeader = "X-Request-ID"

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared JSON line logger
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogEntry emits one structured JSON line
func LogEntry(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}

// RequestLogger tags every request with a ULID (kept from the client when
// it sends a valid one) and writes one JSON line when it completes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(RequestIDHeader)
		if !ids.Valid(reqID) {
			reqID = ids.New()
		}
		c.Set("request_id", reqID)
		c.Header(RequestIDHeader, reqID)

		c.Next()

		entry := map[string]any{
			"ts":         start.UTC().Format(time.RFC3339Nano),
			"level":      "info",
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": reqID,
			"client_ip":  c.ClientIP(),
		}
		if a := Actor(c); a.Authenticated() {
			entry["user_id"] = a.UserID.String()
		}
		if c.Writer.Status() >= 500 {
			entry["level"] = "error"
		}
		if len(c.Errors) > 0 {
			entry["errors"] = c.Errors.String()
		}
		LogEntry(entry)
	}
}

// RequestID returns the id assigned by RequestLogger
func RequestID(c *gin.Context) string {
	return c.GetString("request_id")
}
