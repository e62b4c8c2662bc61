package cache

import (
	"sync"
	"testing"
	"time"
)

func TestRefreshBatcherCoalescesDuplicateKeys(t *testing.T) {
	var mu sync.Mutex
	var flushed [][]string

	b := newRefreshBatcher[string](20*time.Millisecond, 1000, func(keys []string) {
		mu.Lock()
		defer mu.Unlock()
		flushed = append(flushed, keys)
	})
	b.start()
	defer b.stop()

	b.enqueue("k")
	b.enqueue("k")
	b.enqueue("k")

	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	total := 0
	for _, batch := range flushed {
		total += len(batch)
	}
	if total != 1 {
		t.Fatalf("expected the duplicate enqueues to collapse to 1 flushed key, got %d", total)
	}
}

func TestRefreshBatcherChunksLargeBatches(t *testing.T) {
	var mu sync.Mutex
	var chunkSizes []int

	b := newRefreshBatcher[int](20*time.Millisecond, 10, func(keys []int) {
		mu.Lock()
		defer mu.Unlock()
		chunkSizes = append(chunkSizes, len(keys))
	})
	b.start()
	defer b.stop()

	for i := 0; i < 25; i++ {
		b.enqueue(i)
	}

	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	total := 0
	for _, n := range chunkSizes {
		if n > 10 {
			t.Fatalf("expected no chunk to exceed batch size 10, got %d", n)
		}
		total += n
	}
	if total != 25 {
		t.Fatalf("expected all 25 enqueued keys to be flushed, got %d", total)
	}
}
