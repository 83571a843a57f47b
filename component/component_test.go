package component

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kbukum/faultline/logger"
)

type fakeComponent struct {
	name     string
	startErr error
	stopErr  error
	health   Health
	order    *[]string
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(context.Context) error {
	if f.order != nil {
		*f.order = append(*f.order, "start:"+f.name)
	}
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	if f.order != nil {
		*f.order = append(*f.order, "stop:"+f.name)
	}
	return f.stopErr
}

func (f *fakeComponent) Health(context.Context) Health { return f.health }

func (f *fakeComponent) Describe() Description {
	return Description{Type: "test", Details: f.name}
}

func newRegistry() *Registry { return NewRegistry(logger.Nop()) }

func TestRegistry_Register(t *testing.T) {
	r := newRegistry()
	if err := r.Register(&fakeComponent{name: "storage"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&fakeComponent{name: "storage"}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	if r.Get("storage") == nil || r.Get("redis") != nil {
		t.Error("Get returned the wrong component")
	}
	if len(r.All()) != 1 {
		t.Errorf("All = %d components", len(r.All()))
	}
}

func TestRegistry_Lifecycle(t *testing.T) {
	r := newRegistry()
	var order []string
	for _, name := range []string{"storage", "logstore", "http-server"} {
		_ = r.Register(&fakeComponent{name: name, order: &order})
	}

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}

	want := "start:storage,start:logstore,start:http-server,stop:http-server,stop:logstore,stop:storage"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %s\nwant    %s", got, want)
	}
}

func TestRegistry_StartFailureStopsOnlyStarted(t *testing.T) {
	r := newRegistry()
	var order []string
	_ = r.Register(&fakeComponent{name: "storage", order: &order})
	_ = r.Register(&fakeComponent{name: "redis", order: &order, startErr: fmt.Errorf("connection refused")})
	_ = r.Register(&fakeComponent{name: "logstore", order: &order})

	err := r.StartAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("StartAll error = %v", err)
	}
	_ = r.StopAll(context.Background())

	want := "start:storage,start:redis,stop:storage"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestRegistry_StopAllJoinsErrors(t *testing.T) {
	r := newRegistry()
	_ = r.Register(&fakeComponent{name: "a", stopErr: fmt.Errorf("a failed")})
	_ = r.Register(&fakeComponent{name: "b", stopErr: fmt.Errorf("b failed")})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "a failed") || !strings.Contains(err.Error(), "b failed") {
		t.Errorf("StopAll error = %v", err)
	}
}

func TestRegistry_HealthAll(t *testing.T) {
	r := newRegistry()
	_ = r.Register(&fakeComponent{name: "storage", health: Health{Name: "storage", Status: StatusHealthy}})
	_ = r.Register(&fakeComponent{name: "redis", health: Health{Name: "redis", Status: StatusUnhealthy, Message: "timeout"}})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Status != StatusHealthy || results[1].Status != StatusUnhealthy {
		t.Errorf("results = %+v", results)
	}
	if results[0].Name != "storage" || results[1].Name != "redis" {
		t.Errorf("order = %s, %s", results[0].Name, results[1].Name)
	}
}

func TestRegistry_HealthAll_FillsName(t *testing.T) {
	r := newRegistry()
	_ = r.Register(&fakeComponent{name: "logstore", health: Health{Status: StatusDegraded}})

	results := r.HealthAll(context.Background())
	if results[0].Name != "logstore" {
		t.Errorf("Name = %q, want logstore", results[0].Name)
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name     string
		statuses []HealthStatus
		want     HealthStatus
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []HealthStatus{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []HealthStatus{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy wins", []HealthStatus{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
		{"unknown status ranks worst", []HealthStatus{"starting"}, "starting"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports := make([]Health, len(tt.statuses))
			for i, s := range tt.statuses {
				reports[i] = Health{Name: fmt.Sprintf("c%d", i), Status: s}
			}
			if got := Overall(reports); got != tt.want {
				t.Errorf("Overall() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirstUnhealthy(t *testing.T) {
	reports := []Health{
		{Name: "storage", Status: StatusDegraded},
		{Name: "redis", Status: StatusUnhealthy},
		{Name: "kafka", Status: StatusUnhealthy},
	}
	if got := FirstUnhealthy(reports); got != "redis" {
		t.Errorf("FirstUnhealthy() = %q, want redis", got)
	}
	if got := FirstUnhealthy(reports[:1]); got != "" {
		t.Errorf("FirstUnhealthy() = %q, want empty", got)
	}
}
