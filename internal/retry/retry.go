// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry runs an operation up to a fixed number of attempts with
// exponential backoff between them.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// maxBackoffFactor caps the backoff at this multiple of the base delay.
const maxBackoffFactor = 8

// Do calls fn until it succeeds or attempts calls have failed. onFailure, if
// non-nil, is called after every failed attempt with the 1-based attempt
// number. When every attempt fails the last error is returned unwrapped.
// Context cancellation stops retrying.
func Do[T any](ctx context.Context, attempts int, delay time.Duration, onFailure func(err error, attempt int), fn func(ctx context.Context) (T, error)) (T, error) {
	if attempts <= 0 {
		attempts = 1
	}

	builder := retrypolicy.NewBuilder[T]().
		WithMaxRetries(attempts - 1).
		HandleIf(func(_ T, err error) bool {
			return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}).
		ReturnLastFailure()
	if delay > 0 {
		builder = builder.WithBackoff(delay, maxBackoffFactor*delay)
	}

	attempt := 0
	return failsafe.With[T](builder.Build()).
		WithContext(ctx).
		Get(func() (T, error) {
			attempt++
			result, err := fn(ctx)
			if err != nil && onFailure != nil {
				onFailure(err, attempt)
			}
			return result, err
		})
}
