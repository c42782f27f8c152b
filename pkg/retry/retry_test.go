package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyDelay(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{retry: 1, want: 1 * time.Second},
		{retry: 2, want: 2 * time.Second},
		{retry: 3, want: 4 * time.Second},
		{retry: 4, want: 8 * time.Second},
		{retry: 5, want: 16 * time.Second},
		{retry: 6, want: 30 * time.Second},
		{retry: 60, want: 30 * time.Second},
		{retry: 0, want: 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Delay(tt.retry), "retry %d", tt.retry)
	}
}

func TestPolicyDelayProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("delay is monotonic and never exceeds the cap", prop.ForAll(
		func(baseMs int, capMs int, n int) bool {
			p := Policy{
				InitialInterval: time.Duration(baseMs) * time.Millisecond,
				MaxInterval:     time.Duration(baseMs+capMs) * time.Millisecond,
				Multiplier:      2.0,
			}
			cur, next := p.Delay(n), p.Delay(n+1)
			return cur <= next && next <= p.MaxInterval && cur >= p.InitialInterval
		},
		gen.IntRange(1, 5000),
		gen.IntRange(0, 60000),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t)
}

func fastPolicy(retries int) Policy {
	return Policy{
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhausts(t *testing.T) {
	calls := 0
	var retries []int
	err := RetryWithCallback(context.Background(), fastPolicy(2), func() error {
		calls++
		return errors.New("still failing")
	}, func(retry int, err error, nextDelay time.Duration) {
		retries = append(retries, retry)
	})

	require.EqualError(t, err, "still failing")
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestRetryStopsOnFatal(t *testing.T) {
	calls := 0
	cause := errors.New("bad input")
	err := Retry(context.Background(), fastPolicy(5), func() error {
		calls++
		return NewFatalError(cause)
	})

	require.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, Policy{MaxRetries: 10, InitialInterval: time.Hour, MaxInterval: time.Hour, Multiplier: 1}, func() error {
		calls++
		cancel()
		return errors.New("fail")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(NewFatalError(errors.New("x"))))
	assert.False(t, IsFatal(NewRetryableError(errors.New("x"))))
	assert.False(t, IsFatal(errors.New("plain")))
}
