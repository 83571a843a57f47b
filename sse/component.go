package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/faultline/component"
)

// Component owns the notification hub's event loop.
type Component struct {
	hub  *Hub
	path string

	mu       sync.Mutex
	loop     sync.WaitGroup
	running  bool
	lastDrop int64
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent builds a hub whose streams are mounted at path.
func NewComponent(path string, opts ...HubOption) *Component {
	return &Component{hub: NewHub(opts...), path: path}
}

func (c *Component) Hub() *Hub { return c.hub }

func (c *Component) Name() string { return "sse" }

// Start runs the hub loop in the background. A second Start is a no-op.
func (c *Component) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		c.running = true
		c.loop.Go(c.hub.Run)
	}
	return nil
}

// Stop closes every stream and waits for the loop to exit.
func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hub.Stop()
	c.loop.Wait()
	c.running = false
	return nil
}

// Health is degraded when notifications were dropped since the previous
// probe, meaning some browser is not draining its stream.
func (c *Component) Health(context.Context) component.Health {
	c.mu.Lock()
	dropped := c.hub.Dropped()
	fresh := dropped - c.lastDrop
	c.lastDrop = dropped
	c.mu.Unlock()

	h := component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", c.hub.ClientCount()),
	}
	if fresh > 0 {
		h.Status = component.StatusDegraded
		h.Message += fmt.Sprintf(", %d notifications dropped", fresh)
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Notification Stream",
		Type:    "sse",
		Details: "path=" + c.path,
	}
}
