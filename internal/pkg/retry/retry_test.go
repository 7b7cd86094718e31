package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_AllAttemptsFail(t *testing.T) {
	var slept []time.Duration
	p := Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		Multiplier:     2.0,
		Sleep:          func(d time.Duration) { slept = append(slept, d) },
	}

	calls := 0
	boom := errors.New("remote unavailable")
	_, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		return "", boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls, "operation must run exactly MaxAttempts times")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept, "backoff must double after each failure")
}

func TestDo_SucceedsOnSecondAttempt(t *testing.T) {
	var slept []time.Duration
	p := Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		Multiplier:     2.0,
		Sleep:          func(d time.Duration) { slept = append(slept, d) },
	}

	calls := 0
	got, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("transient")
		}
		return "pong", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "pong", got)
	assert.Equal(t, 2, calls, "operation must stop after the first success")
	assert.Equal(t, []time.Duration{time.Second}, slept)
}

func TestDo_FirstAttemptSuccessSkipsBackoff(t *testing.T) {
	p := DefaultPolicy()
	p.Sleep = func(d time.Duration) { t.Fatalf("unexpected sleep of %v", d) }

	got, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		Multiplier:     2.0,
		Sleep:          func(time.Duration) { cancel() },
	}

	calls := 0
	_, err := Do(ctx, p, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("transient")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation during backoff must stop further attempts")
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.InitialBackoff)
	assert.Equal(t, 2.0, p.Multiplier)
}
