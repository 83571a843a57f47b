package sse

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kbukum/faultline/logger"
)

// ConnectedEvent greets every new stream.
type ConnectedEvent struct {
	ClientID  string `json:"clientId"`
	SessionID string `json:"sessionId,omitempty"`
}

var streamHeaders = map[string]string{
	"Content-Type":      "text/event-stream",
	"Cache-Control":     "no-cache",
	"Connection":        "keep-alive",
	"X-Accel-Buffering": "no",
}

// ServeSSE registers the request with hub as clientID and copies events to
// the response until the client goes away or the hub closes the stream.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string, opts ...ClientOption) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	log := hub.log.WithContext(r.Context())
	rc := http.NewResponseController(w)
	// The server's WriteTimeout would cut long-lived streams.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("write deadline kept", logger.Fields("client_id", clientID, logger.FieldError, err.Error()))
	}
	for k, v := range streamHeaders {
		w.Header().Set(k, v)
	}

	client := hub.NewClient(clientID, opts...)
	hub.Register(client)
	defer hub.Unregister(client)

	send := func(wt io.WriterTo) bool {
		if _, err := wt.WriteTo(w); err != nil {
			log.Debug("stream write failed", logger.Fields("client_id", clientID, logger.FieldError, err.Error()))
			return false
		}
		return rc.Flush() == nil
	}

	if hello, err := NewJSONEvent(EventTypeConnected, ConnectedEvent{ClientID: clientID, SessionID: client.SessionID()}); err == nil {
		if !send(hello) {
			return
		}
	}

	ping := time.NewTicker(hub.keepAlive)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-client.Events():
			if !open || !send(ev) {
				return
			}
		case t := <-ping.C:
			if !send(comment(fmt.Sprintf("keepalive %d", t.Unix()))) {
				return
			}
		}
	}
}

// comment is an SSE comment line; clients ignore it.
type comment string

func (c comment) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, ": %s\n\n", string(c))
	return int64(n), err
}
