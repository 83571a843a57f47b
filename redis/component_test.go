package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/faultline/component"
	"github.com/kbukum/faultline/logger"
)

func TestComponent_Lifecycle(t *testing.T) {
	mini := miniredis.RunT(t)
	ctx := context.Background()

	c := NewComponent(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("Health before Start = %s, want unhealthy", h.Status)
	}
	if c.Store() != nil {
		t.Error("Store() should be nil before Start")
	}

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("Health after Start = %s (%s), want healthy", h.Status, h.Message)
	}
	if c.Store() == nil {
		t.Error("Store() is nil after Start")
	}
	if d := c.Describe(); d.Type != "redis" {
		t.Errorf("Describe().Type = %q", d.Type)
	}

	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestComponent_StartFailsWhenDisabled(t *testing.T) {
	c := NewComponent(Config{Enabled: false}, logger.Nop())
	if err := c.Start(context.Background()); err == nil {
		t.Error("expected error starting a disabled component")
	}
}

func TestConfig_Options(t *testing.T) {
	cfg := Config{Enabled: true, URL: "redis://:secret@cache:6380/2", Addr: "ignored:1"}
	cfg.ApplyDefaults()
	opts, err := cfg.options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 2 || opts.Password != "secret" {
		t.Errorf("options = addr %q db %d password %q", opts.Addr, opts.DB, opts.Password)
	}
	if opts.PoolSize != 10 || opts.ReadTimeout != 3*time.Second {
		t.Errorf("pool defaults not applied: pool=%d read=%s", opts.PoolSize, opts.ReadTimeout)
	}
	if got := cfg.Endpoint(); got != "cache:6380 db=2" {
		t.Errorf("Endpoint = %q", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "disabled skips checks", cfg: Config{}},
		{name: "missing addr", cfg: Config{Enabled: true, PoolSize: 1}, wantErr: true},
		{name: "negative timeout", cfg: Config{Enabled: true, Addr: "x:1", PoolSize: 1, DialTimeout: -time.Second}, wantErr: true},
		{name: "backoff inverted", cfg: Config{Enabled: true, Addr: "x:1", PoolSize: 1, MinRetryBackoff: time.Second, MaxRetryBackoff: time.Millisecond}, wantErr: true},
		{name: "bad url", cfg: Config{Enabled: true, URL: "http://x:1", PoolSize: 1}, wantErr: true},
		{name: "url", cfg: Config{Enabled: true, URL: "redis://:secret@cache:6380/2", PoolSize: 1}},
		{name: "valid", cfg: Config{Enabled: true, Addr: "x:1", PoolSize: 1, DialTimeout: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
