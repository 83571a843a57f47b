package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kbukum/faultline/errors"
	"github.com/kbukum/faultline/resilience"
)

// Client sends requests through the configured guards: rate limiter, then
// circuit breaker, then the wire. Retries wrap all three.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *resilience.CircuitBreaker
	limiter *resilience.RateLimiter
	retrier *resilience.Retrier
}

type Option func(*Client)

// WithRetrier supplies the Retrier used when Config.Retry is set.
func WithRetrier(r *resilience.Retrier) Option {
	return func(c *Client) { c.retrier = r }
}

// WithHTTPClient swaps the transport. Config.Timeout still applies and
// Config.TLS is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tc, err := cfg.TLS.Build()
		if err != nil {
			return nil, fmt.Errorf("httpclient: %w", err)
		}
		if tc != nil {
			tr.TLSClientConfig = tc
		}
		c.http = &http.Client{Transport: tr}
	}
	c.http.Timeout = cfg.Timeout
	if cfg.Breaker != nil {
		c.breaker = resilience.NewCircuitBreaker(*cfg.Breaker)
	}
	if cfg.Limiter != nil {
		c.limiter = resilience.NewRateLimiter(*cfg.Limiter)
	}
	return c, nil
}

// Do sends req. Without Config.Retry the error is the attempt's own
// (*Error, resilience.ErrCircuitOpen or a context error). With it, the
// error is the classified outcome of the retry loop.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.cfg.Retry == nil {
		return c.attempt(ctx, req)
	}
	ectx := errors.Context{Component: "httpclient", Action: req.method() + " " + req.Path}
	return resilience.Retry(ctx, c.retrier, ectx, *c.cfg.Retry, func(ctx context.Context) (*Response, error) {
		return c.attempt(ctx, req)
	})
}

// CircuitState is StateClosed when no breaker is configured.
func (c *Client) CircuitState() resilience.State {
	if c.breaker == nil {
		return resilience.StateClosed
	}
	return c.breaker.State()
}

func (c *Client) Timeout() time.Duration { return c.http.Timeout }

func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if c.breaker == nil {
		return c.send(ctx, req)
	}
	var resp *Response
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		resp, err = c.send(ctx, req)
		return err
	})
	return resp, err
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	hr, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	fail := func(status int, body []byte, cause error) *Error {
		return &Error{StatusCode: status, Method: hr.Method, URL: hr.URL.String(), Body: body, Err: cause}
	}

	res, err := c.http.Do(hr)
	if err != nil {
		return nil, fail(0, nil, err)
	}
	defer func() { _ = res.Body.Close() }()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fail(0, nil, fmt.Errorf("read response body: %w", err))
	}

	out := &Response{StatusCode: res.StatusCode, Header: res.Header, Body: body}
	if !out.IsSuccess() {
		return out, fail(res.StatusCode, body, nil)
	}
	return out, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	invalid := func(what string, err error) error {
		return errors.NewValidation(fmt.Sprintf("%s: %v", what, err), map[string]any{"path": req.Path})
	}
	target, err := req.target(c.cfg.BaseURL)
	if err != nil {
		return nil, invalid("request url", err)
	}
	body, contentType, err := req.payload()
	if err != nil {
		return nil, invalid("encode request body", err)
	}
	hr, err := http.NewRequestWithContext(ctx, req.method(), target, body)
	if err != nil {
		return nil, invalid("create request", err)
	}

	for k, v := range c.cfg.Headers {
		hr.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		hr.Header.Set(k, v)
	}
	if contentType != "" && hr.Header.Get("Content-Type") == "" {
		hr.Header.Set("Content-Type", contentType)
	}

	auth := req.Auth
	if auth == nil {
		auth = c.cfg.Auth
	}
	if auth != nil {
		if err := auth(hr); err != nil {
			return nil, err
		}
	}
	return hr, nil
}
