package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
)

// RequestLogger logs every request except health checks at debug level, and
// server errors at warn.
func RequestLogger(logger hclog.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", status,
			"duration", time.Since(start).String(),
			"size", c.Writer.Size(),
			"ip", c.ClientIP(),
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("request failed", args...)
			return
		}
		logger.Debug("request", args...)
	}
}

// ErrorLogger logs errors attached to the gin context
func ErrorLogger(logger hclog.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		c.Next()

		for _, err := range c.Errors {
			logger.Error("request error",
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"error", err.Error(),
				"type", err.Type,
			)
		}
	}
}

// CORS allows any origin to call the API.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Expose-Headers", "Location")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
