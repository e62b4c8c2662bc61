package cache

import (
	"testing"
	"time"
)

func TestEncodeDecodeRecordRoundTrip(t *testing.T) {
	createdAt := time.Now().Truncate(time.Second)
	evictsAt := createdAt.Add(5 * time.Minute)
	payload := []byte("hello world")

	raw := encodeRecord(true, createdAt, evictsAt, payload)
	decoded, err := decodeRecord(raw)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}

	if !decoded.hasValue {
		t.Fatal("expected hasValue true")
	}
	// unix-second framing only guarantees round-tripping to the second.
	if decoded.createdAt.Unix() != createdAt.Unix() {
		t.Fatalf("createdAt mismatch: got %v want %v", decoded.createdAt, createdAt)
	}
	if decoded.evictsAt.Unix() != evictsAt.Unix() {
		t.Fatalf("evictsAt mismatch: got %v want %v", decoded.evictsAt, evictsAt)
	}
	if string(decoded.valueBytes) != string(payload) {
		t.Fatalf("valueBytes mismatch: got %q want %q", decoded.valueBytes, payload)
	}
}

func TestEncodeDecodeRecordAbsent(t *testing.T) {
	createdAt := time.Now().Truncate(time.Second)
	evictsAt := createdAt.Add(time.Minute)

	raw := encodeRecord(false, createdAt, evictsAt, nil)
	decoded, err := decodeRecord(raw)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if decoded.hasValue {
		t.Fatal("expected hasValue false for an absent record")
	}
}

func TestDecodeRecordTooShort(t *testing.T) {
	_, err := decodeRecord([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected an error decoding a too-short record")
	}
}

func TestDistributedKeyFormat(t *testing.T) {
	got := distributedKey("env-prod", "users", 3, "42")
	want := "env-prod|users|1/3|42"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	gotNoPrefix := distributedKey("", "users", 3, "42")
	wantNoPrefix := "users|1/3|42"
	if gotNoPrefix != wantNoPrefix {
		t.Fatalf("got %q want %q", gotNoPrefix, wantNoPrefix)
	}
}
