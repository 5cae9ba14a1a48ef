package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"qrbook.backend/pkg/logger"
)

// quietPaths are polled by health checks and scrapers and are not access-logged.
var quietPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// LoggerMiddleware writes one access log line per request. Query strings are
// kept so card lookups by token stay traceable.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, quiet := quietPaths[c.Request.URL.Path]; quiet {
			c.Next()
			return
		}

		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		c.Next()

		logger.LogRequest(c.Request.Context(), c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}
