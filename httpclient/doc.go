// Package httpclient is the outbound HTTP transport: JSON requests with
// default headers and an Authorizer, guarded by an optional rate limiter
// and circuit breaker and retried through a resilience.Retrier.
//
// Failed requests return *Error, which implements errors.Adapter so the
// classifier maps it straight onto the taxonomy (status code, response body,
// connectivity failure).
//
//	breaker := resilience.DefaultCircuitBreakerConfig("collector")
//	client, _ := httpclient.New(httpclient.Config{
//	    BaseURL: "https://collector.example.com",
//	    Breaker: &breaker,
//	})
//	resp, err := client.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/errors", Body: entry})
package httpclient
