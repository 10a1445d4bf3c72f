package latency

import (
	"context"
	"testing"
	"time"

	"github.com/exploopio/vrx-portal/pkg/errors"
)

func TestScaled(t *testing.T) {
	tests := []struct {
		name  string
		sim   *Simulator
		in    time.Duration
		want  time.Duration
	}{
		{"nil simulator", nil, time.Second, 0},
		{"disabled", Disabled(), time.Second, 0},
		{"unit scale", New(1), 800 * time.Millisecond, 800 * time.Millisecond},
		{"half scale", New(0.5), 800 * time.Millisecond, 400 * time.Millisecond},
		{"negative scale", New(-2), time.Second, 0},
		{"negative duration", New(1), -time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sim.Scaled(tt.in); got != tt.want {
				t.Errorf("Scaled(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWait_Elapses(t *testing.T) {
	sim := New(1)
	start := time.Now()
	if err := sim.Wait(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Wait returned after %v, want >= 20ms", elapsed)
	}
}

func TestWait_Disabled(t *testing.T) {
	start := time.Now()
	if err := Disabled().Wait(context.Background(), time.Hour); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("disabled Wait took %v", elapsed)
	}
}

func TestWait_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := New(1).Wait(ctx, time.Hour)
	if errors.GetKind(err) != errors.KindCanceled {
		t.Errorf("Wait() kind = %v, want %v", errors.GetKind(err), errors.KindCanceled)
	}
}

func TestWait_AlreadyExpired(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := Disabled().Wait(ctx, 0)
	if errors.GetKind(err) != errors.KindTimeout {
		t.Errorf("Wait() kind = %v, want %v", errors.GetKind(err), errors.KindTimeout)
	}
}
