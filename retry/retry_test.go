package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvaldez/agentdrive"
	"github.com/dvaldez/agentdrive/retry"
)

// fastPolicy keeps test sleeps negligible.
func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Factor:         2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransient(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("api error 529: overloaded")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentFailsFast(t *testing.T) {
	calls := 0
	permanent := fmt.Errorf("start: %w", agentdrive.ErrUnavailable)
	err := retry.Do(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, agentdrive.ErrUnavailable)
	assert.Equal(t, 1, calls, "permanent errors must not be retried")
}

func TestDo_Exhaustion(t *testing.T) {
	calls := 0
	transient := errors.New("rate limit exceeded")
	err := retry.Do(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return transient
	})
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorIs(t, err, transient, "last attempt error must stay in the chain")
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	p := retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Minute, // force cancellation mid-sleep
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	calls := 0
	err := retry.Do(ctx, p, func(context.Context) error {
		calls++
		return errors.New("503 service unavailable")
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestDo_CanceledContextBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retry.Do(ctx, fastPolicy(), func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestDo_CustomClassifier(t *testing.T) {
	flaky := errors.New("flaky but not a known marker")
	p := fastPolicy()
	p.Classify = func(err error) retry.Category {
		if errors.Is(err, flaky) {
			return retry.Transient
		}
		return retry.Permanent
	}

	calls := 0
	err := retry.Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 2 {
			return flaky
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ZeroPolicyUsesDefaults(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), retry.Policy{}, func(context.Context) error {
		calls++
		return agentdrive.ErrUnavailable // permanent: no sleeps with default 1s backoff
	})
	assert.ErrorIs(t, err, agentdrive.ErrUnavailable)
	assert.Equal(t, 1, calls)
}

func TestDefaultClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want retry.Category
	}{
		{"nil", nil, retry.Permanent},
		{"rate limit text", errors.New("anthropic: rate limit hit"), retry.Transient},
		{"http 429", errors.New("unexpected status 429"), retry.Transient},
		{"http 503", errors.New("503 from upstream"), retry.Transient},
		{"overloaded", errors.New("model overloaded, try later"), retry.Transient},
		{"canceled", context.Canceled, retry.Permanent},
		{"deadline", context.DeadlineExceeded, retry.Permanent},
		{"unavailable", agentdrive.ErrUnavailable, retry.Permanent},
		{"unknown", errors.New("segfault"), retry.Permanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retry.DefaultClassifier(tt.err))
		})
	}
}

func TestDefault(t *testing.T) {
	p := retry.Default()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.InitialBackoff)
	assert.Equal(t, 30*time.Second, p.MaxBackoff)
}
