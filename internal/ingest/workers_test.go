package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestForEachBoundedRespectsLimit(t *testing.T) {
	items := make([]int, 40)
	var active, peak atomic.Int32
	var mu sync.Mutex
	seen := make(map[int]bool)

	forEachBounded(context.Background(), items, 3, func(_ context.Context, idx int, _ int) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
		mu.Lock()
		seen[idx] = true
		mu.Unlock()
	})

	if peak.Load() > 3 {
		t.Fatalf("expected at most 3 concurrent workers, saw %d", peak.Load())
	}
	if len(seen) != len(items) {
		t.Fatalf("expected every item processed, got %d", len(seen))
	}
}

func TestForEachBoundedStopsDispatchOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	items := make([]int, 100)
	var calls atomic.Int32

	forEachBounded(ctx, items, 1, func(_ context.Context, idx int, _ int) {
		if calls.Add(1) == 5 {
			cancel()
		}
	})

	if got := calls.Load(); got >= int32(len(items)) {
		t.Fatalf("expected dispatch to stop after cancel, processed %d", got)
	}
}
