// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_ImmediateSuccess(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), 3, time.Millisecond, nil, func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	var failed []int
	calls := 0
	got, err := Do(context.Background(), 3, time.Millisecond,
		func(_ error, attempt int) { failed = append(failed, attempt) },
		func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, fmt.Errorf("transient error (call %d)", calls)
			}
			return 42, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, []int{1, 2}, failed)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	errBoom := errors.New("boom")
	calls := 0
	var failed []int
	_, err := Do(context.Background(), 3, 0,
		func(_ error, attempt int) { failed = append(failed, attempt) },
		func(context.Context) (int, error) {
			calls++
			return 0, errBoom
		})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2, 3}, failed)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), 0, 0, nil, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("fail")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, 5, time.Millisecond, nil, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, context.Canceled
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
