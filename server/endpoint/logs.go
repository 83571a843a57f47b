package endpoint

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/faultline/errors"
	"github.com/kbukum/faultline/logstore"
)

// LogStore is the part of the error log the API exposes.
type LogStore interface {
	SessionID() string
	SearchLogs(c logstore.Criteria) []logstore.Entry
	Metrics() logstore.Metrics
	ExportLogs() logstore.Export
	ResolveError(ctx context.Context, id string) bool
	ClearLogs(ctx context.Context)
	LogUserAction(ctx context.Context, action, component string, data map[string]any) logstore.Entry
}

// ListLogs returns entries matching the query string criteria
// (component, action, level, message, from, to).
func ListLogs(store LogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var crit logstore.Criteria
		if err := c.ShouldBindQuery(&crit); err != nil {
			respondError(c, errors.NewValidation(fmt.Sprintf("invalid query: %v", err), nil))
			return
		}
		logs := store.SearchLogs(crit)
		c.JSON(http.StatusOK, gin.H{"data": logs, "meta": gin.H{"total": len(logs), "sessionId": store.SessionID()}})
	}
}

// LogMetrics returns the aggregate error metrics.
func LogMetrics(store LogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": store.Metrics()})
	}
}

// ExportLogs returns the full export document as a download.
func ExportLogs(store LogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		export := store.ExportLogs()
		name := fmt.Sprintf("error-logs-%s.json", export.ExportedAt.UTC().Format("20060102T150405Z"))
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
		c.IndentedJSON(http.StatusOK, export)
	}
}

// ResolveLog marks the entry named by the :id path parameter resolved.
func ResolveLog(store LogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !store.ResolveError(c.Request.Context(), id) {
			respondError(c, errors.New(errors.KindNotFound, "log entry "+id+" not found"))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ClearLogs empties the log and its persisted snapshot.
func ClearLogs(store LogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		store.ClearLogs(c.Request.Context())
		c.Status(http.StatusNoContent)
	}
}

func respondError(c *gin.Context, ce *errors.ClassifiedError) {
	c.AbortWithStatusJSON(ce.HTTPStatus(), ce.ToResponse())
}
