package workers

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCount(t *testing.T) {
	t.Setenv("THUMBNAIL_WORKERS", "")
	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{name: "CPU-bound", multiplier: 1.0, limit: 0, minExpect: 1, maxExpect: availableCPU},
		{name: "I/O-bound", multiplier: 2.0, limit: 0, minExpect: 1, maxExpect: availableCPU * 2},
		{name: "limit lower than calculated", multiplier: 2.0, limit: 2, minExpect: 1, maxExpect: 2},
		{name: "tiny multiplier still yields one", multiplier: 0.01, limit: 0, minExpect: 1, maxExpect: 1 + availableCPU/100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, want in [%d, %d]", tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		want     int // 0 means "fall back to computed value"
	}{
		{name: "valid override", envValue: "8", limit: 0, want: 8},
		{name: "override capped by limit", envValue: "20", limit: 10, want: 10},
		{name: "override below limit", envValue: "5", limit: 10, want: 5},
		{name: "non-numeric ignored", envValue: "invalid", limit: 0},
		{name: "zero ignored", envValue: "0", limit: 0},
		{name: "negative ignored", envValue: "-5", limit: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("THUMBNAIL_WORKERS", tt.envValue)

			got := Count(1.0, tt.limit)
			if tt.want == 0 {
				if got != runtime.GOMAXPROCS(0) {
					t.Errorf("Count() = %d, want computed %d", got, runtime.GOMAXPROCS(0))
				}
				return
			}
			if got != tt.want {
				t.Errorf("Count(1.0, %d) with THUMBNAIL_WORKERS=%s = %d, want %d", tt.limit, tt.envValue, got, tt.want)
			}
		})
	}
}

func TestForCPUAndForIO(t *testing.T) {
	t.Setenv("THUMBNAIL_WORKERS", "")
	if got := ForCPU(1); got != 1 {
		t.Errorf("ForCPU(1) = %d, want 1", got)
	}
	if ForIO(0) < ForCPU(0) {
		t.Errorf("ForIO(0) = %d should not be less than ForCPU(0) = %d", ForIO(0), ForCPU(0))
	}
}

func TestEachVisitsEveryItem(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	var mu sync.Mutex
	var seen []int
	Each(context.Background(), 3, items, func(_ context.Context, item int) {
		mu.Lock()
		seen = append(seen, item)
		mu.Unlock()
	})

	sort.Ints(seen)
	if len(seen) != len(items) {
		t.Fatalf("visited %d items, want %d", len(seen), len(items))
	}
	for i := range items {
		if seen[i] != items[i] {
			t.Errorf("seen[%d] = %d, want %d", i, seen[i], items[i])
		}
	}
}

func TestEachBoundsConcurrency(t *testing.T) {
	var running, peak int32
	items := make([]int, 20)

	Each(context.Background(), 2, items, func(context.Context, int) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&running, -1)
	})

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestEachEmptyAndCancelled(t *testing.T) {
	Each(context.Background(), 4, []string{}, func(context.Context, string) {
		t.Error("fn called for empty input")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int32
	Each(ctx, 1, make([]int, 100), func(context.Context, int) {
		atomic.AddInt32(&calls, 1)
	})
	if calls != 0 {
		t.Errorf("fn called %d times after cancellation, want 0", calls)
	}
}
