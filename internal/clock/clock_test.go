package clock

import (
	"sync"
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := &RealClock{}

	before := time.Now()
	actual := clock.Now()
	after := time.Now()

	if actual.Before(before) || actual.After(after) {
		t.Errorf("RealClock.Now() = %v, want between %v and %v", actual, before, after)
	}
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	clock.Advance(time.Minute)
	if got := clock.Now(); !got.Equal(start.Add(time.Minute)) {
		t.Errorf("after Advance, Now() = %v", got)
	}

	clock.SetStep(time.Second)
	first := clock.Now()
	second := clock.Now()
	if second.Sub(first) != time.Second {
		t.Errorf("step not applied: %v -> %v", first, second)
	}
}

func TestSince(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	clock.Advance(90 * time.Second)

	if got := Since(clock, start); got != 90*time.Second {
		t.Errorf("Since() = %v, want 90s", got)
	}
}

func TestFakeClock_Concurrent(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	clock.SetStep(time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				clock.Now()
			}
		}()
	}
	wg.Wait()

	if got := clock.Now(); !got.Equal(start.Add(100 * time.Millisecond)) {
		t.Errorf("Now() after 100 calls = %v", got)
	}
}
