package endpoint

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/faultline/sse"
)

// NotificationStream streams toasts over SSE. The client may pass
// client_id and session_id query parameters; a random id is used otherwise.
func NotificationStream(hub *sse.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Query("client_id")
		if id == "" {
			id = uuid.NewString()
		}
		var opts []sse.ClientOption
		if session := c.Query("session_id"); session != "" {
			opts = append(opts, sse.WithSessionID(session))
		}
		sse.ServeSSE(hub, c.Writer, c.Request, id, opts...)
	}
}
