package cache

import (
	"context"
	"testing"
	"time"
)

func newTestL2Adapter(stores []L2Store) *l2Adapter[string, string] {
	metrics := newMetricsSink("t", nil)
	return newL2Adapter[string, string]("t", "", stores, nil, JSONSerializer[string, string]{}, metrics, NewNopLogger())
}

func TestL2AdapterSetThenGet(t *testing.T) {
	store := newMockL2()
	a := newTestL2Adapter([]L2Store{store})
	ctx := context.Background()

	entry := NewValueEntry("v1", time.Now(), time.Minute)
	a.set(ctx, "k", entry)

	res := a.get(ctx, "k")
	if res.status != statusHit {
		t.Fatalf("expected hit, got %v", res.status)
	}
	if res.entry.Value != "v1" {
		t.Fatalf("expected v1, got %q", res.entry.Value)
	}
}

func TestL2AdapterMiss(t *testing.T) {
	store := newMockL2()
	a := newTestL2Adapter([]L2Store{store})

	res := a.get(context.Background(), "missing")
	if res.status != statusMiss {
		t.Fatalf("expected miss, got %v", res.status)
	}
}

func TestL2AdapterGetErrorDegradesToErrorStatus(t *testing.T) {
	store := newMockL2()
	store.failOn["get"] = true
	a := newTestL2Adapter([]L2Store{store})

	res := a.get(context.Background(), "k")
	if res.status != statusError {
		t.Fatalf("expected error status, got %v", res.status)
	}
}

func TestL2AdapterDecodeFailureDegradesToError(t *testing.T) {
	store := newMockL2()
	store.data["t|1/1|k"] = []byte{1, 2, 3} // too short to be a valid record
	a := newTestL2Adapter([]L2Store{store})

	res := a.get(context.Background(), "k")
	if res.status != statusError {
		t.Fatalf("expected error status for an undecodable record, got %v", res.status)
	}
	if _, ok := store.data["t|1/1|k"]; !ok {
		t.Fatal("expected the undecodable record to be left in place, not deleted")
	}
}

func TestL2AdapterSetSkipsAlreadyExpired(t *testing.T) {
	store := newMockL2()
	a := newTestL2Adapter([]L2Store{store})

	past := NewValueEntry("v", time.Now().Add(-time.Hour), time.Minute)
	a.set(context.Background(), "k", past)

	if len(store.data) != 0 {
		t.Fatal("expected no write for an already-expired entry")
	}
}
