package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff_Schedule(t *testing.T) {
	tests := []struct {
		name string
		b    Backoff
		want []time.Duration
	}{
		{
			name: "exponential capped",
			b:    Backoff{Strategy: Exponential, Base: 100 * time.Millisecond, Max: 500 * time.Millisecond},
			want: []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 500 * time.Millisecond},
		},
		{
			name: "linear",
			b:    Backoff{Strategy: Linear, Base: time.Second},
			want: []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second},
		},
		{
			name: "constant ignores jitter in schedule",
			b:    Backoff{Strategy: Constant, Base: time.Second, Jitter: 0.5},
			want: []time.Duration{time.Second, time.Second, time.Second, time.Second},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.b.Schedule(4))
		})
	}
	assert.Nil(t, DefaultBackoff().Schedule(0))
}

func TestBackoff_Jitter(t *testing.T) {
	b := Backoff{Strategy: Constant, Base: time.Second, Jitter: 0.1}
	for range 100 {
		d := b.Interval(3)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}

func TestDo(t *testing.T) {
	fast := Backoff{Strategy: Constant, Base: time.Millisecond}
	ctx := context.Background()

	calls := 0
	err := Do(ctx, 3, fast, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = Do(ctx, 3, fast, func(context.Context) error {
		calls++
		return errors.New("disk full")
	})
	assert.ErrorContains(t, err, "after 3 attempts: disk full")
	assert.Equal(t, 3, calls)

	calls = 0
	closed := errors.New("sink closed")
	err = Do(ctx, 3, fast, func(context.Context) error {
		calls++
		return Permanent(closed)
	})
	assert.ErrorIs(t, err, closed)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, 5, Backoff{Strategy: Constant, Base: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("unavailable")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
