package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks a dependency, e.g. the database connection.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HandleHealthCheck returns the basic health status of the service. When
// pinger is set, a failed ping reports 503.
func HandleHealthCheck(pinger Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.PingContext(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": "streamin",
					"error":   err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "streamin",
		})
	}
}
