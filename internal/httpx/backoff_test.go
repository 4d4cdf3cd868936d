package httpx

import (
	"testing"
	"time"
)

func TestBackoffForAttemptWithoutJitter(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, time.Second, 0)
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for attempt, w := range want {
		if got := b.ForAttempt(attempt); got != w {
			t.Fatalf("attempt %d: got %v want %v", attempt, got, w)
		}
	}
	if got := b.ForAttempt(200); got != time.Second {
		t.Fatalf("large attempt should cap at max, got %v", got)
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, time.Second, 0.5)
	for i := 0; i < 100; i++ {
		d := b.ForAttempt(1)
		if d < 100*time.Millisecond || d > 300*time.Millisecond {
			t.Fatalf("jittered delay out of bounds: %v", d)
		}
	}
}

func TestNewBackoffDefaults(t *testing.T) {
	b := NewBackoff(0, 0, -1)
	if b.BaseDelay != 50*time.Millisecond || b.MaxDelay != time.Second || b.Jitter != 0 {
		t.Fatalf("unexpected defaults: %+v", b)
	}
}
