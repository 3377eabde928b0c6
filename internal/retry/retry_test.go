package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("transient")
	errFatal     = errors.New("fatal")
)

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func TestPolicy_StopsAtMaxAttempts(t *testing.T) {
	p := Constant(3, time.Millisecond)

	var seen []int
	err := p.Do(context.Background(), isTransient, func(_ context.Context, attempt int) error {
		seen = append(seen, attempt)
		return errTransient
	})

	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestPolicy_SucceedsAfterRetry(t *testing.T) {
	p := Constant(3, time.Millisecond)

	calls := 0
	err := p.Do(context.Background(), isTransient, func(context.Context, int) error {
		calls++
		if calls < 2 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPolicy_NonRetryableStopsImmediately(t *testing.T) {
	p := Constant(5, time.Millisecond)

	calls := 0
	err := p.Do(context.Background(), isTransient, func(context.Context, int) error {
		calls++
		return errFatal
	})

	require.ErrorIs(t, err, errFatal)
	assert.Equal(t, 1, calls)
}

func TestPolicy_ContextCancelledDuringBackoff(t *testing.T) {
	p := Constant(3, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, isTransient, func(context.Context, int) error {
			calls++
			return errTransient
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancel")
	}
}

func TestPolicy_ZeroValueRunsOnce(t *testing.T) {
	var p Policy

	calls := 0
	err := p.Do(context.Background(), isTransient, func(context.Context, int) error {
		calls++
		return errTransient
	})

	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}
