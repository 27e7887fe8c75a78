package infrastructure

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRateLimiterBurstPerKey(t *testing.T) {
	rl := NewRateLimiter(0.001, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d rejected inside the burst", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("request past the burst allowed")
	}
	if wait := rl.WaitTime("10.0.0.1"); wait <= 0 {
		t.Errorf("wait = %v after the burst, want > 0", wait)
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("exhausted bucket leaked into another key")
	}
}

func TestRateLimiterWaitTimeDoesNotConsume(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)

	if wait := rl.WaitTime("k"); wait != 0 {
		t.Errorf("wait = %v on a full bucket", wait)
	}
	if !rl.Allow("k") {
		t.Error("WaitTime consumed the only token")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(50, 1)

	if !rl.Allow("k") {
		t.Fatal("first request rejected")
	}
	if rl.Allow("k") {
		t.Fatal("second request allowed before refill")
	}
	time.Sleep(rl.WaitTime("k") + 10*time.Millisecond)
	if !rl.Allow("k") {
		t.Error("bucket did not refill")
	}
}

func TestRateLimiterSharedBucketUnderConcurrency(t *testing.T) {
	rl := NewRateLimiter(0.001, 5)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("shared") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	if n := allowed.Load(); n != 5 {
		t.Errorf("allowed = %d, want 5", n)
	}
}
