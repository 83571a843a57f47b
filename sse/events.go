package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Event types written on the stream.
const (
	EventTypeConnected     = "connected"
	EventTypeToast         = "toast"
	EventTypeCriticalAlert = "critical_alert"
)

// Event is one Server-Sent Event.
type Event struct {
	ID   string
	Type string
	Data []byte
}

// NewJSONEvent encodes v as the data of an event of the given type.
func NewJSONEvent(typ string, v any) (Event, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Event{}, fmt.Errorf("sse: encode %s event: %w", typ, err)
	}
	return Event{Type: typ, Data: data}, nil
}

// WriteTo writes the event in text/event-stream framing. Multi-line data is
// split across several data fields.
func (e Event) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if e.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", e.ID)
	}
	if e.Type != "" {
		fmt.Fprintf(&buf, "event: %s\n", e.Type)
	}
	for _, line := range bytes.Split(e.Data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}
