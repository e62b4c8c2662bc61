package cache

import (
	"context"
	"testing"
	"time"
)

func TestBulkPreloadWritesThroughBothTiers(t *testing.T) {
	l2 := newMockL2()
	loader := newMockLoader[string, string](time.Minute)
	loader.set("a", "va")
	loader.set("b", "vb")
	c, l1 := newTestCoordinator(t, l2, loader)

	if err := c.BulkPreload(context.Background(), []string{"a", "b", "missing"}); err != nil {
		t.Fatalf("BulkPreload: %v", err)
	}

	if got, ok := l1.TryGet("a"); !ok || got.Value != "va" {
		t.Fatalf("expected l1 to have 'va' for key a, got %+v ok=%v", got, ok)
	}
	if got, ok := l1.TryGet("b"); !ok || got.Value != "vb" {
		t.Fatalf("expected l1 to have 'vb' for key b, got %+v ok=%v", got, ok)
	}
	if _, ok := l1.TryGet("missing"); ok {
		t.Fatal("expected no l1 entry for a key the source doesn't have")
	}
	if _, ok := l2.data["t|1/1|a"]; !ok {
		t.Fatal("expected key a to be written through to l2")
	}
	if _, ok := l2.data["t|1/1|b"]; !ok {
		t.Fatal("expected key b to be written through to l2")
	}
}

func TestBulkRefreshSkipsSourceForFreshL2(t *testing.T) {
	l2 := newMockL2()
	loader := newMockLoader[string, string](time.Minute)
	c, _ := newTestCoordinator(t, l2, loader)

	c.l2.set(context.Background(), "a", NewValueEntry("fresh", time.Now(), time.Minute))

	if err := c.BulkRefresh(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("BulkRefresh: %v", err)
	}
	if loader.callCount() != 0 {
		t.Fatalf("expected no loader calls for an already-fresh l2 entry, got %d", loader.callCount())
	}
}

func TestBulkRefreshBatchesSourceCallsByConfiguredSize(t *testing.T) {
	loader := newMockLoader[string, string](time.Minute)
	keys := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		k := string(rune('a' + i%26))
		keys = append(keys, k)
		loader.set(k, "v-"+k)
	}

	l1 := newMockL1[string, string]()
	c, err := New[string, string](Config{Name: "t", TimeToLive: time.Minute, RefreshTick: time.Hour, BatchSize: 10}, Dependencies[string, string]{
		L1:     l1,
		Loader: loader,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := c.BulkRefresh(context.Background(), keys); err != nil {
		t.Fatalf("BulkRefresh: %v", err)
	}

	if calls := loader.callCount(); calls < 3 {
		t.Fatalf("expected at least 3 batched loader calls for 25 keys at batch size 10, got %d", calls)
	}
}
