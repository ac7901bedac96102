package signal

import (
	"testing"
	"time"
)

func TestRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(3, time.Second)
	rl.nowF = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("message %d refused", i)
		}
	}
	if rl.Allow("a") {
		t.Error("4th message in window allowed")
	}
	if !rl.Allow("b") {
		t.Error("limit leaked across connections")
	}

	now = now.Add(1001 * time.Millisecond)
	if !rl.Allow("a") {
		t.Error("window did not slide")
	}
}

func TestRateLimiter_Forget(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	if !rl.Allow("a") || rl.Allow("a") {
		t.Fatal("limit of one not enforced")
	}
	rl.Forget("a")
	if !rl.Allow("a") {
		t.Error("history survived Forget")
	}
}
