package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/faultline/auth"
	"github.com/kbukum/faultline/auth/authctx"
	"github.com/kbukum/faultline/authz"
	"github.com/kbukum/faultline/errors"
	"github.com/kbukum/faultline/logger"
	"github.com/kbukum/faultline/server/middleware"
)

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestRecovery(t *testing.T) {
	t.Run("no panic", func(t *testing.T) {
		rr := httptest.NewRecorder()
		middleware.Recovery(logger.Nop())(http.HandlerFunc(okHandler)).ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("panic", func(t *testing.T) {
		handler := middleware.Recovery(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("nil map write")
		}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/logs", http.NoBody))

		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rr.Code)
		}
		var body errors.ErrorResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("response is not valid JSON: %v", err)
		}
		if body.Error.ID == "" || body.Error.Message == "" {
			t.Errorf("unexpected body: %+v", body)
		}
		if strings.Contains(rr.Body.String(), "nil map write") {
			t.Error("panic value must not leak to the client")
		}
	})
}

func TestRequestID(t *testing.T) {
	t.Run("generates", func(t *testing.T) {
		handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(middleware.RequestIDHeader) == "" {
				t.Error("expected X-Request-Id in request headers")
			}
			w.WriteHeader(http.StatusOK)
		}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))
		if rr.Header().Get(middleware.RequestIDHeader) == "" {
			t.Error("expected X-Request-Id in response headers")
		}
	})

	t.Run("preserves", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", http.NoBody)
		req.Header.Set(middleware.RequestIDHeader, "custom-id-123")
		middleware.RequestID()(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
		if got := rr.Header().Get(middleware.RequestIDHeader); got != "custom-id-123" {
			t.Fatalf("expected custom-id-123, got %s", got)
		}
	})
	t.Run("reaches handler logs", func(t *testing.T) {
		var out strings.Builder
		log := logger.NewWithWriter(&logger.Config{Level: "info", Format: logger.FormatJSON}, "faultline", &out)
		handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.WithContext(r.Context()).Info("handled")
		}))
		req := httptest.NewRequest("GET", "/", http.NoBody)
		req.Header.Set(middleware.RequestIDHeader, "req-7")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if !strings.Contains(out.String(), `"request_id":"req-7"`) {
			t.Errorf("expected request id in log line, got %q", out.String())
		}
	})
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		cfg         middleware.CORSConfig
		preflight   bool
		origin      string
		wantOrigin  string
		wantStatus  int
		wantCreds   string
		wantMethods string
		wantMaxAge  string
	}{
		{
			name:       "allowed origin",
			cfg:        middleware.CORSConfig{AllowedOrigins: []string{"https://dash.example.com"}, AllowedMethods: []string{"GET", "POST"}},
			origin:     "https://dash.example.com",
			wantOrigin: "https://dash.example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:        "preflight",
			cfg:         middleware.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "POST"}, MaxAge: 10 * time.Minute},
			preflight:   true,
			origin:      "https://app.example.com",
			wantOrigin:  "https://app.example.com",
			wantStatus:  http.StatusNoContent,
			wantMethods: "GET, POST",
			wantMaxAge:  "600",
		},
		{
			name:       "subdomain wildcard",
			cfg:        middleware.CORSConfig{AllowedOrigins: []string{"https://*.example.com"}},
			origin:     "https://staging.example.com",
			wantOrigin: "https://staging.example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wildcard needs a subdomain",
			cfg:        middleware.CORSConfig{AllowedOrigins: []string{"https://*.example.com"}},
			origin:     "https://evilexample.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "disallowed origin",
			cfg:        middleware.CORSConfig{AllowedOrigins: []string{"https://allowed.com"}},
			origin:     "https://evil.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "disallowed preflight",
			cfg:        middleware.CORSConfig{AllowedOrigins: []string{"https://allowed.com"}},
			preflight:  true,
			origin:     "https://evil.com",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "credentials",
			cfg:        middleware.CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true},
			origin:     "https://app.example.com",
			wantOrigin: "https://app.example.com",
			wantStatus: http.StatusOK,
			wantCreds:  "true",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/logs", http.NoBody)
			if tt.preflight {
				req = httptest.NewRequest(http.MethodOptions, "/api/v1/logs", http.NoBody)
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			req.Header.Set("Origin", tt.origin)
			middleware.CORS(&cfg)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
				t.Errorf("allow credentials = %q, want %q", got, tt.wantCreds)
			}
			if got := rr.Header().Get("Access-Control-Allow-Methods"); got != tt.wantMethods {
				t.Errorf("allow methods = %q, want %q", got, tt.wantMethods)
			}
			if got := rr.Header().Get("Access-Control-Max-Age"); got != tt.wantMaxAge {
				t.Errorf("max age = %q, want %q", got, tt.wantMaxAge)
			}
		})
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	for _, path := range []string{"/api/v1/errors", "/health", "/api/v1/notifications/stream"} {
		called := false
		handler := middleware.RequestLogger(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusCreated)
		}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("POST", path, http.NoBody))
		if !called || rr.Code != http.StatusCreated {
			t.Errorf("%s: called=%v code=%d", path, called, rr.Code)
		}
	}
}

func TestBodySizeLimit(t *testing.T) {
	handler := middleware.BodySizeLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", strings.NewReader("small")))
	if rr.Code != http.StatusOK {
		t.Errorf("small body: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", strings.NewReader("this body is too large")))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body: got %d", rr.Code)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-before")
				next.ServeHTTP(w, r)
				order = append(order, name+"-after")
			})
		}
	}

	handler := middleware.Chain(mark("m1"), mark("m2"))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", http.NoBody))

	want := []string{"m1-before", "m2-before", "handler", "m2-after", "m1-after"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

type flushRecorder struct {
	http.ResponseWriter
	flushed bool
}

func (f *flushRecorder) Flush() { f.flushed = true }

func TestRequestLogger_DelegatesFlush(t *testing.T) {
	fr := &flushRecorder{ResponseWriter: httptest.NewRecorder()}
	handler := middleware.RequestLogger(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(fr, httptest.NewRequest("GET", "/api/v1/logs/export", http.NoBody))
	if !fr.flushed {
		t.Error("expected Flush to be delegated to underlying writer")
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/errors", middleware.RateLimit(middleware.RateLimitConfig{Rate: 0.001, Burst: 2}), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	codes := make([]int, 0, 3)
	for range 3 {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest("POST", "/errors", http.NoBody))
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusAccepted || codes[1] != http.StatusAccepted || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := auth.TokenValidatorFunc(func(token string) (any, error) {
		if token == "good" {
			return &auth.Principal{Subject: "web", Method: auth.MethodJWT, Scopes: []string{authz.FullAccess}}, nil
		}
		return nil, auth.ErrUnauthenticated
	})
	r := gin.New()
	r.GET("/logs", middleware.Auth(validator), func(c *gin.Context) {
		p, ok := authctx.Get[*auth.Principal](c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, p.Subject)
	})

	tests := []struct {
		name   string
		target string
		header [2]string
		want   int
	}{
		{"bearer", "/logs", [2]string{"Authorization", "Bearer good"}, http.StatusOK},
		{"api key header", "/logs", [2]string{middleware.APIKeyHeader, "good"}, http.StatusOK},
		{"query param", "/logs?access_token=good", [2]string{}, http.StatusOK},
		{"missing", "/logs", [2]string{}, http.StatusUnauthorized},
		{"wrong token", "/logs", [2]string{"Authorization", "Bearer bad"}, http.StatusUnauthorized},
		{"basic scheme", "/logs", [2]string{"Authorization", "Basic good"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, http.NoBody)
			if tt.header[0] != "" {
				req.Header.Set(tt.header[0], tt.header[1])
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusOK && rr.Body.String() != "web" {
				t.Errorf("body = %q", rr.Body.String())
			}
			if tt.want == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestRequire(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name      string
		principal *auth.Principal
		want      int
	}{
		{"no principal", nil, http.StatusOK},
		{"granted", &auth.Principal{Subject: "ops", Scopes: []string{"logs:*"}}, http.StatusOK},
		{"denied", &auth.Principal{Subject: "web", Scopes: []string{authz.ErrorsWrite}}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(func(c *gin.Context) {
				if tt.principal != nil {
					c.Request = c.Request.WithContext(authctx.Set(c.Request.Context(), tt.principal))
				}
			})
			r.DELETE("/logs", middleware.Require(authz.LogsWrite), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/logs", http.NoBody))
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
