package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/videotube/videotube/internal/logging"
	"github.com/videotube/videotube/internal/metrics"
)

// Logger logs request details and feeds the HTTP metrics.
func Logger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		log.LogHTTPRequest(c.Request.Method, path, c.ClientIP(), status, duration)
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(status), duration.Seconds())
	}
}
