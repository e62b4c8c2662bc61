package cache

import (
	"testing"
	"time"
)

func TestL1AdapterGetSetDelete(t *testing.T) {
	store := newMockL1[string, string]()
	metrics := newMetricsSink("t", nil)
	a := newL1Adapter[string, string]("t", store, metrics, NewNopLogger())

	if _, ok := a.Get("k"); ok {
		t.Fatal("expected miss on empty store")
	}

	entry := NewValueEntry("v1", time.Now(), time.Minute)
	a.Set("k", entry)

	got, ok := a.Get("k")
	if !ok || got.Value != "v1" {
		t.Fatalf("expected hit with v1, got %+v ok=%v", got, ok)
	}

	if !a.Delete("k") {
		t.Fatal("expected delete to report true for an existing key")
	}
	if a.Delete("k") {
		t.Fatal("expected delete to report false for an already-deleted key")
	}
}

func TestL1AdapterContainsPanics(t *testing.T) {
	store := newMockL1[string, string]()
	store.panicOn = "get"
	metrics := newMetricsSink("t", nil)
	a := newL1Adapter[string, string]("t", store, metrics, NewNopLogger())

	entry, ok := a.Get("k")
	if ok {
		t.Fatal("expected a panicking store to degrade to a miss")
	}
	if entry.HasValue {
		t.Fatal("expected zero-value entry on panic")
	}

	store.panicOn = "set"
	a.Set("k", NewValueEntry("v", time.Now(), time.Minute)) // must not panic out

	store.panicOn = "delete"
	if a.Delete("k") {
		t.Fatal("expected a panicking delete to report false")
	}
}

func TestL1AdapterPanickingSetLeavesCountAtZero(t *testing.T) {
	store := newMockL1[string, string]()
	metrics := newMetricsSink("t", nil)
	a := newL1Adapter[string, string]("t", store, metrics, NewNopLogger())

	store.panicOn = "set"
	// Set's own panic containment must not propagate, and the failed Set
	// must leave nothing stored. mockL1.Count itself never panics, so
	// safeCount's recover() path is not exercised here.
	a.Set("k", NewValueEntry("v", time.Now(), time.Minute))

	store.panicOn = ""
	if n := a.safeCount(); n != 0 {
		t.Fatalf("expected count 0 after a failed set, got %d", n)
	}
}
