// Package sse streams notification events to browser tabs over
// Server-Sent Events.
//
// A Hub owns the connected clients and fans events out to every client
// whose id matches a glob pattern. ServeSSE attaches one HTTP request to
// the hub and writes events in the text/event-stream framing:
//
//	hub := sse.NewHub()
//	go hub.Run()
//	router.GET("/api/v1/notifications/stream", func(c *gin.Context) {
//	    sse.ServeSSE(hub, c.Writer, c.Request, "session:"+c.Query("session"))
//	})
//	hub.Broadcast("session:*", sse.Event{Type: sse.EventTypeToast, Data: payload})
package sse
