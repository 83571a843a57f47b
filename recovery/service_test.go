package recovery

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/faultline/auth"
	"github.com/kbukum/faultline/component"
	"github.com/kbukum/faultline/errors"
	"github.com/kbukum/faultline/httpclient"
	"github.com/kbukum/faultline/logger"
	"github.com/kbukum/faultline/logstore"
	"github.com/kbukum/faultline/notify"
	"github.com/kbukum/faultline/storage"
)

type toastRecorder struct {
	mu     sync.Mutex
	toasts []notify.Toast
}

func (r *toastRecorder) Show(_ context.Context, t notify.Toast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
	return nil
}

func (r *toastRecorder) all() []notify.Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Toast(nil), r.toasts...)
}

func noSleep(context.Context, time.Duration) error { return nil }

func baseConfig() Config {
	cfg := Config{}
	cfg.Name = "faultline"
	cfg.Environment = "production"
	cfg.Logging.Level = "error"
	return cfg
}

func startService(t *testing.T, cfg Config) (*Service, *toastRecorder) {
	t.Helper()
	toasts := &toastRecorder{}
	svc, err := New(cfg, WithLogger(logger.Nop()), WithToaster(toasts), WithRetrySleep(noSleep))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })
	return svc, toasts
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.Environment = "qa" }},
		{"unknown storage provider", func(c *Config) { c.Storage.Provider = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Provider = storage.ProviderS3 }},
		{"redis without address", func(c *Config) { c.Redis.Enabled = true }},
		{"report without endpoint", func(c *Config) { c.Report.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.modify(&cfg)
			if _, err := New(cfg, WithLogger(logger.Nop())); err == nil {
				t.Error("expected config validation error")
			}
		})
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := baseConfig()
	cfg.ApplyDefaults()

	if cfg.Storage.Provider != storage.ProviderMemory {
		t.Errorf("storage provider = %q", cfg.Storage.Provider)
	}
	if cfg.Store.MaxEntries != logstore.DefaultMaxEntries {
		t.Errorf("max entries = %d", cfg.Store.MaxEntries)
	}
	if p := cfg.Retry.For(errors.OpAnalysis); p.MaxRetries != 2 || p.BaseDelay != 5*time.Second {
		t.Errorf("analysis policy = %+v", p)
	}
	if cfg.Tracing.ServiceName != "faultline" || cfg.Metrics.ServiceName != "faultline" {
		t.Errorf("telemetry service names = %q, %q", cfg.Tracing.ServiceName, cfg.Metrics.ServiceName)
	}
	if cfg.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("shutdown timeout = %s", cfg.ShutdownTimeout)
	}
}

func TestService_StartsComponentsInOrder(t *testing.T) {
	svc, _ := startService(t, baseConfig())

	var names []string
	for _, c := range svc.Components() {
		names = append(names, c.Name())
	}
	if got := strings.Join(names, ","); got != "storage,logstore,sse" {
		t.Errorf("components = %s", got)
	}
	for _, h := range svc.Health(context.Background()) {
		if h.Status != component.StatusHealthy {
			t.Errorf("%s health = %s (%s)", h.Name, h.Status, h.Message)
		}
	}
	if svc.Server() != nil || svc.Reporter() != nil {
		t.Error("disabled server and reporter should be nil")
	}
}

func TestService_EventsComponentStartsBeforeLogStore(t *testing.T) {
	cfg := baseConfig()
	cfg.Events.Enabled = true
	cfg.Events.Brokers = []string{"127.0.0.1:1"}
	svc, _ := startService(t, cfg)

	var names []string
	for _, c := range svc.Components() {
		names = append(names, c.Name())
	}
	if got := strings.Join(names, ","); got != "storage,kafka,logstore,sse" {
		t.Errorf("components = %s", got)
	}
}

func TestService_SQLStoragePersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	cfg := baseConfig()
	cfg.Storage.Enabled = true
	cfg.Storage.Provider = storage.ProviderSQL
	cfg.Storage.SQL.DSN = filepath.Join(t.TempDir(), "faultline.db")
	cfg.Storage.SQL.LogLevel = "silent"

	first, err := New(cfg, WithLogger(logger.Nop()), WithRetrySleep(noSleep))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first.Handle(ctx, errors.HTTPError{Status: http.StatusBadGateway}, errors.Context{Component: "Upload"})
	if err := first.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	second, _ := startService(t, cfg)
	if n := second.Store().Len(); n != 1 {
		t.Errorf("entries after restart = %d, want 1", n)
	}
}

func TestService_Handle(t *testing.T) {
	svc, toasts := startService(t, baseConfig())
	ctx := context.Background()

	ce := svc.Handle(ctx, errors.HTTPError{Status: http.StatusServiceUnavailable}, errors.Context{
		Component: "VideoList",
		Action:    errors.OpFetchData,
	})

	if ce.Kind() != errors.KindServer || !ce.Retryable() {
		t.Errorf("kind = %s retryable = %v", ce.Kind(), ce.Retryable())
	}
	entry, ok := svc.Store().Get(ce.ID())
	if !ok {
		t.Fatal("handled error was not logged")
	}
	if entry.Level != logstore.LevelError || entry.Context.Component != "VideoList" {
		t.Errorf("entry = %+v", entry)
	}

	shown := toasts.all()
	if len(shown) != 1 {
		t.Fatalf("toasts = %d, want 1", len(shown))
	}
	if shown[0].ErrorID != ce.ID() || shown[0].Title != "Server Error" {
		t.Errorf("toast = %+v", shown[0])
	}
}

func TestService_HandleKeepsClassifiedError(t *testing.T) {
	svc, _ := startService(t, baseConfig())
	orig := errors.New(errors.KindPermission, "forbidden")

	got := svc.Handle(context.Background(), orig, errors.Context{})
	if got.ID() != orig.ID() {
		t.Errorf("id = %s, want %s", got.ID(), orig.ID())
	}

	merged := svc.Handle(context.Background(), orig, errors.Context{Component: "Settings"})
	if merged.ID() == orig.ID() || merged.Kind() != errors.KindPermission {
		t.Errorf("reissued error = %s %s", merged.ID(), merged.Kind())
	}
}

func TestService_Execute(t *testing.T) {
	svc, toasts := startService(t, baseConfig())

	calls := 0
	err := svc.Execute(context.Background(), errors.Context{Component: "Dashboard", Action: errors.OpFetchData}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New(errors.KindNetwork, "connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if n := svc.Store().Len(); n != 2 {
		t.Errorf("logged failures = %d, want 2", n)
	}
	if len(toasts.all()) == 0 {
		t.Error("expected retry progress toasts")
	}
}

func TestRetry_ReturnsTerminalError(t *testing.T) {
	svc, _ := startService(t, baseConfig())

	calls := 0
	_, err := Retry(context.Background(), svc, errors.Context{Action: errors.OpDownload}, func(context.Context) (string, error) {
		calls++
		return "", &httpclient.Error{StatusCode: http.StatusNotFound, Method: http.MethodGet, URL: "/videos/42"}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if errors.KindOf(err) != errors.KindNotFound {
		t.Errorf("kind = %s", errors.KindOf(err))
	}
}

func TestService_ServesAPI(t *testing.T) {
	cfg := baseConfig()
	cfg.Server.Enabled = true
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = freePort(t)
	svc, toasts := startService(t, cfg)

	base := "http://" + svc.Server().Addr()
	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	body := `{"name":"TypeError","message":"Failed to fetch","component":"Uploader"}`
	resp, err = http.Post(base+"/api/v1/errors", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/v1/errors: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("ingest status = %d", resp.StatusCode)
	}
	if svc.Store().Len() != 1 {
		t.Errorf("store len = %d", svc.Store().Len())
	}
	if len(toasts.all()) != 1 {
		t.Errorf("toasts = %d", len(toasts.all()))
	}
}

func TestService_APIRequiresCredentialsWhenAuthEnabled(t *testing.T) {
	cfg := baseConfig()
	cfg.Server.Enabled = true
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = freePort(t)
	cfg.Auth.Enabled = true
	cfg.Auth.JWT.Secret = "recovery-test-secret"
	svc, _ := startService(t, cfg)

	tokens, err := auth.NewTokenService(cfg.Auth.JWT)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, err := tokens.GenerateAccess(&auth.Claims{RegisteredClaims: gojwt.RegisteredClaims{Subject: "web"}}, time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccess: %v", err)
	}

	base := "http://" + svc.Server().Addr()
	body := `{"name":"TypeError","message":"Failed to fetch"}`
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"bearer", "Bearer " + token, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPost, base+"/api/v1/errors", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			_ = resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestNew_AuthWithoutCredentials(t *testing.T) {
	cfg := baseConfig()
	cfg.Auth.Enabled = true
	if _, err := New(cfg, WithLogger(logger.Nop())); err == nil {
		t.Error("expected validation error")
	}
}
