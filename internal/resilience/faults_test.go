package resilience

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "nil error",
			err:  nil,
			want: "",
		},
		{
			name: "wrapped fault keeps its kind",
			err:  Faultf(ModelUnavailable, "model %q not loaded", "mistral"),
			want: ModelUnavailable,
		},
		{
			name: "deadline exceeded",
			err:  context.DeadlineExceeded,
			want: TimeoutExceeded,
		},
		{
			name: "connection refused",
			err:  syscall.ECONNREFUSED,
			want: Unreachable,
		},
		{
			name: "connection refused by message",
			err:  errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"),
			want: Unreachable,
		},
		{
			name: "timeout by message",
			err:  errors.New("request timeout while waiting for response"),
			want: TimeoutExceeded,
		},
		{
			name: "unknown errors default to malformed response",
			err:  errors.New("unexpected token at offset 12"),
			want: MalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestRecoveryFor(t *testing.T) {
	assert.Equal(t, ActionRetry, RecoveryFor(TimeoutExceeded))
	assert.Equal(t, ActionDegrade, RecoveryFor(Unreachable))
	assert.Equal(t, ActionDegrade, RecoveryFor(ModelUnavailable))
	assert.Equal(t, ActionDegrade, RecoveryFor(MalformedResponse))
	assert.Equal(t, ActionSurface, RecoveryFor(InputError))
}

func TestGuidanceCoversAllKinds(t *testing.T) {
	for _, kind := range []Kind{Unreachable, ModelUnavailable, TimeoutExceeded, MalformedResponse, InputError} {
		assert.NotEmpty(t, Guidance(kind), "kind %s", kind)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryConfig(), nil, func(ctx context.Context) error {
		calls++
		return Faultf(Unreachable, "connection refused")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, Unreachable, Classify(err))
}

func TestRetryRetriesTimeouts(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}

	calls := 0
	err := Retry(context.Background(), cfg, nil, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Faultf(TimeoutExceeded, "request timed out")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttemptBound(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		Multiplier:   1.0,
	}

	calls := 0
	err := Retry(context.Background(), cfg, nil, func(ctx context.Context) error {
		calls++
		return Faultf(TimeoutExceeded, "still timing out")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, TimeoutExceeded, Classify(err))
}

func TestRetryHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, DefaultRetryConfig(), nil, func(ctx context.Context) error {
		return Faultf(TimeoutExceeded, "never reached")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestLimiterDisabledByZeroRate(t *testing.T) {
	l := NewLimiter(0, 0)
	assert.NoError(t, l.Wait(context.Background()))
}
