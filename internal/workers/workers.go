package workers

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync"
)

// Count returns a worker count of GOMAXPROCS times multiplier, at least 1
// and at most limit (0 means no limit). GOMAXPROCS follows container CPU
// limits. THUMBNAIL_WORKERS overrides the computed value.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv("THUMBNAIL_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// Each calls fn for every item using at most n goroutines and returns when
// all calls have finished. Items not yet started when ctx is cancelled are
// skipped.
func Each[T any](ctx context.Context, n int, items []T, fn func(ctx context.Context, item T)) {
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}

	jobs := make(chan T)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				fn(ctx, item)
			}
		}()
	}

	defer wg.Wait()
	defer close(jobs)

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		select {
		case jobs <- item:
		case <-ctx.Done():
			return
		}
	}
}
