package resilience

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/faultline/errors"
)

// DefaultBatchConcurrency is the chunk size used when none is given.
const DefaultBatchConcurrency = 3

// BatchOptions configures RetryBatch.
type BatchOptions struct {
	// Concurrency is the number of keys processed in parallel per chunk.
	Concurrency int
	// FailFast stops after the first chunk that contains a failure.
	FailFast bool
}

// BatchResult is the outcome for one key.
type BatchResult[K comparable, T any] struct {
	Key   K
	Value T
	Err   *errors.ClassifiedError
}

// OK reports whether the key succeeded.
func (r BatchResult[K, T]) OK() bool { return r.Err == nil }

// RetryBatch runs op for every key with the same context and policy.
// Keys are processed in chunks of opts.Concurrency; each chunk runs in
// parallel and each key is retried independently. Results are returned in
// key order. Without FailFast every key gets a result and the returned error
// is nil. With FailFast, processing stops after the first failing chunk and
// the first failure (in key order) is returned alongside the results
// collected so far.
func RetryBatch[K comparable, T any](
	ctx context.Context,
	r *Retrier,
	keys []K,
	ectx errors.Context,
	p Policy,
	opts BatchOptions,
	op func(ctx context.Context, key K) (T, error),
) ([]BatchResult[K, T], error) {
	size := opts.Concurrency
	if size <= 0 {
		size = DefaultBatchConcurrency
	}

	results := make([]BatchResult[K, T], 0, len(keys))
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		chunk := make([]BatchResult[K, T], end-start)

		var g errgroup.Group
		for i, key := range keys[start:end] {
			keyCtx := ectx.WithData("batchKey", fmt.Sprint(key))
			g.Go(func() error {
				v, err := Retry(ctx, r, keyCtx, p, func(ctx context.Context) (T, error) {
					return op(ctx, key)
				})
				chunk[i] = BatchResult[K, T]{Key: key, Value: v}
				if ce, ok := errors.AsClassified(err); ok {
					chunk[i].Err = ce
				}
				return nil
			})
		}
		_ = g.Wait()
		results = append(results, chunk...)

		if opts.FailFast {
			for _, res := range chunk {
				if res.Err != nil {
					return results, res.Err
				}
			}
		}
	}
	return results, nil
}
