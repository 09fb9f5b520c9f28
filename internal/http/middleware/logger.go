package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stayhub/internal/utils"
)

// Logger emits one access line per request through the shared event logger,
// so HTTP traffic carries the same request_id format as service logs.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		action := "request"
		if status >= http.StatusInternalServerError {
			action = "request_error"
		}

		utils.LogEvent(GetRequestID(c), "http", action,
			fmt.Sprintf("method=%s path=%s status=%d latency_ms=%.3f ip=%s",
				c.Request.Method,
				c.Request.URL.Path,
				status,
				float64(latency.Microseconds())/1000.0,
				c.ClientIP(),
			))
	}
}
