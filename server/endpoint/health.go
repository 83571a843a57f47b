package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/faultline/component"
)

// HealthChecker collects the current component reports.
type HealthChecker func(ctx context.Context) []component.Health

type healthBody struct {
	Status     component.HealthStatus `json:"status"`
	Service    string                 `json:"service"`
	CheckedAt  time.Time              `json:"checked_at"`
	Components []component.Health     `json:"components,omitempty"`
}

func collect(c *gin.Context, checker HealthChecker) []component.Health {
	if checker == nil {
		return nil
	}
	return checker(c.Request.Context())
}

// Health answers with the worst component status. Degraded still returns
// 200 so load balancers keep routing; unhealthy returns 503.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		reports := collect(c, checker)
		body := healthBody{
			Status:     component.Overall(reports),
			Service:    serviceName,
			CheckedAt:  time.Now().UTC(),
			Components: reports,
		}
		code := http.StatusOK
		if body.Status != component.StatusHealthy && body.Status != component.StatusDegraded {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, body)
	}
}
