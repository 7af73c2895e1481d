package wasip1

import (
	"context"
	"testing"
)

func TestClockMonotonicNonDecreasing(t *testing.T) {
	p := NewClock()
	mem := newFakeMemory(16)
	ctx := context.Background()

	var last uint64
	for i := 0; i < 10; i++ {
		errno, err := p.timeGet(ctx, mem, []uint64{clockMonotonic, 0, 0})
		if err != nil || errno != ESUCCESS {
			t.Fatalf("clock_time_get = %v, %v", errno, err)
		}
		now := mem.uint64At(t, 0)
		if now < last {
			t.Fatalf("monotonic went backwards: %d after %d", now, last)
		}
		last = now
	}
}

func TestClockRealtimeNonDecreasing(t *testing.T) {
	p := NewClock()
	mem := newFakeMemory(16)
	ctx := context.Background()

	var last uint64
	for i := 0; i < 10; i++ {
		errno, err := p.timeGet(ctx, mem, []uint64{clockRealtime, 0, 0})
		if err != nil || errno != ESUCCESS {
			t.Fatalf("clock_time_get = %v, %v", errno, err)
		}
		now := mem.uint64At(t, 0)
		if now < last {
			t.Fatalf("realtime went backwards: %d after %d", now, last)
		}
		last = now
	}
}

func TestClockResolution(t *testing.T) {
	p := NewClock()
	mem := newFakeMemory(16)
	ctx := context.Background()

	errno, err := p.resGet(ctx, mem, []uint64{clockMonotonic, 0})
	if err != nil || errno != ESUCCESS {
		t.Fatalf("clock_res_get = %v, %v", errno, err)
	}
	if got := mem.uint64At(t, 0); got != 1 {
		t.Errorf("monotonic resolution = %d, want 1", got)
	}

	errno, err = p.resGet(ctx, mem, []uint64{clockRealtime, 0})
	if err != nil || errno != ESUCCESS {
		t.Fatalf("clock_res_get = %v, %v", errno, err)
	}
	if got := mem.uint64At(t, 0); got != 1000 {
		t.Errorf("realtime resolution = %d, want 1000", got)
	}
}

func TestClockUnknownID(t *testing.T) {
	p := NewClock()
	mem := newFakeMemory(16)

	if errno, _ := p.timeGet(context.Background(), mem, []uint64{99, 0, 0}); errno != EINVAL {
		t.Errorf("clock_time_get(99) = %v, want EINVAL", errno)
	}
	if errno, _ := p.resGet(context.Background(), mem, []uint64{99, 0}); errno != EINVAL {
		t.Errorf("clock_res_get(99) = %v, want EINVAL", errno)
	}
}
