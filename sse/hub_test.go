package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/faultline/logger"
)

func newRunningHub(t *testing.T, opts ...HubOption) *Hub {
	t.Helper()
	hub := NewHub(append([]HubOption{WithLogger(logger.Nop())}, opts...)...)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 1s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.ID())
		return Event{}
	}
}

func TestEvent_WriteTo(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{name: "data only", ev: Event{Data: []byte(`{"a":1}`)}, want: "data: {\"a\":1}\n\n"},
		{name: "typed", ev: Event{Type: EventTypeToast, Data: []byte("x")}, want: "event: toast\ndata: x\n\n"},
		{name: "id and multi-line", ev: Event{ID: "7", Type: "t", Data: []byte("a\nb")}, want: "id: 7\nevent: t\ndata: a\ndata: b\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			if _, err := tt.ev.WriteTo(&sb); err != nil {
				t.Fatalf("WriteTo: %v", err)
			}
			if sb.String() != tt.want {
				t.Errorf("WriteTo = %q, want %q", sb.String(), tt.want)
			}
		})
	}
}

func TestClient_SendDropsWhenFull(t *testing.T) {
	hub := NewHub(WithLogger(logger.Nop()), WithBufferSize(2))
	c := hub.NewClient("session:a")
	if !c.Send(Event{}) || !c.Send(Event{}) {
		t.Fatal("sends within buffer should succeed")
	}
	if c.Send(Event{}) {
		t.Error("send beyond buffer should be dropped")
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := newRunningHub(t)
	c := hub.NewClient("session:a")

	hub.Register(c)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.Unregister(c)
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
	if _, open := <-c.Events(); open {
		t.Error("unregistered client channel should be closed")
	}
}

func TestHub_ReRegisterReplacesClient(t *testing.T) {
	hub := newRunningHub(t)
	first := hub.NewClient("session:a")
	second := hub.NewClient("session:a")

	hub.Register(first)
	hub.Register(second)
	waitFor(t, func() bool {
		select {
		case _, open := <-first.Events():
			return !open
		default:
			return false
		}
	})

	hub.Unregister(first)
	hub.Broadcast("session:a", Event{Type: EventTypeToast})
	if ev := receive(t, second); ev.Type != EventTypeToast {
		t.Errorf("second client got %q", ev.Type)
	}
}

func TestHub_BroadcastPattern(t *testing.T) {
	hub := newRunningHub(t)
	a := hub.NewClient("session:a")
	b := hub.NewClient("session:b")
	admin := hub.NewClient("admin:1")
	for _, c := range []*Client{a, b, admin} {
		hub.Register(c)
	}
	waitFor(t, func() bool { return hub.ClientCount() == 3 })

	hub.Broadcast("session:*", Event{Type: EventTypeToast, Data: []byte("hi")})

	for _, c := range []*Client{a, b} {
		if ev := receive(t, c); string(ev.Data) != "hi" {
			t.Errorf("%s got %q", c.ID(), ev.Data)
		}
	}
	hub.Broadcast("admin:1", Event{Type: EventTypeCriticalAlert})
	if ev := receive(t, admin); ev.Type != EventTypeCriticalAlert {
		t.Errorf("admin got %q, want only the critical alert", ev.Type)
	}
}

func TestHub_StopIsSafe(t *testing.T) {
	hub := NewHub(WithLogger(logger.Nop()))
	go hub.Run()
	c := hub.NewClient("session:a")
	hub.Register(c)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.Stop()
	hub.Stop()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })

	done := make(chan struct{})
	go func() {
		hub.Broadcast("*", Event{})
		hub.Unregister(c)
		hub.Register(hub.NewClient("late"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub calls blocked after Stop")
	}
}

func TestServeSSE_StreamsEvents(t *testing.T) {
	hub := newRunningHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(hub, w, r, "session:s1", WithSessionID("s1"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	readEvent := func() string {
		var sb strings.Builder
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if line == "\n" {
				return sb.String()
			}
			sb.WriteString(line)
		}
	}

	if first := readEvent(); !strings.Contains(first, "event: connected") || !strings.Contains(first, `"sessionId":"s1"`) {
		t.Fatalf("first event = %q", first)
	}

	waitFor(t, func() bool { return hub.ClientCount() == 1 })
	hub.Broadcast("session:*", Event{Type: EventTypeToast, Data: []byte(`{"title":"Network Error"}`)})

	if got := readEvent(); !strings.Contains(got, "event: toast") || !strings.Contains(got, "Network Error") {
		t.Errorf("toast event = %q", got)
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	comp := NewComponent("/api/v1/notifications/stream", WithLogger(logger.Nop()))
	ctx := context.Background()

	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := comp.Health(ctx); h.Status != "healthy" || !strings.Contains(h.Message, "0 clients") {
		t.Errorf("Health = %+v", h)
	}
	if d := comp.Describe(); !strings.Contains(d.Details, "/api/v1/notifications/stream") {
		t.Errorf("Describe = %+v", d)
	}
	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestComponent_DegradedOnDrops(t *testing.T) {
	comp := NewComponent("/stream", WithLogger(logger.Nop()), WithBufferSize(1))
	ctx := context.Background()
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = comp.Stop(ctx) })

	hub := comp.Hub()
	hub.Register(hub.NewClient("session:slow"))
	waitFor(t, func() bool { return hub.ClientCount() == 1 })
	for range 3 {
		hub.Broadcast("session:*", Event{Type: EventTypeToast})
	}
	waitFor(t, func() bool { return hub.Dropped() == 2 })

	if h := comp.Health(ctx); h.Status != "degraded" || !strings.Contains(h.Message, "2 notifications dropped") {
		t.Errorf("Health = %+v", h)
	}
	if h := comp.Health(ctx); h.Status != "healthy" {
		t.Errorf("second probe = %+v, want healthy once drops are reported", h)
	}
}
