package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/faultline/component"
)

// Readiness is 503 while any component is unhealthy and names the first one.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if name := component.FirstUnhealthy(collect(c, checker)); name != "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "service": serviceName, "component": name})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "service": serviceName})
	}
}
