// Package resilience re-invokes failing operations.
//
// Retry wraps an operation with exponential backoff and jitter. Each failure
// is classified; only retryable failures are retried, and the caller always
// receives either the result or exactly one *errors.ClassifiedError.
//
//	video, err := resilience.Retry(ctx, retrier, errors.Context{Component: "Library", Action: "download"},
//	    resilience.PolicyFor("download"),
//	    func(ctx context.Context) (*Video, error) { return api.Download(ctx, id) })
//
// RetryBatch fans a keyed operation out in chunks, Poll re-checks a resource
// at a constant interval, and CircuitBreaker and RateLimiter guard outbound
// calls such as remote error reporting. Bulkhead bounds how many of those
// calls run at once.
package resilience
