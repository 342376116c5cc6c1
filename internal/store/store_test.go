package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	value := []byte("draft")
	if err := m.Set(ctx, "k", value, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value[0] = 'X'
	got, err := m.Get(ctx, "k")
	if err != nil || string(got) != "draft" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := m.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected key removed, got %v", err)
	}
	if err := m.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove of absent key: %v", err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if err := m.Set(ctx, "s", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, "s"); err != nil {
		t.Fatalf("expected live key, got %v", err)
	}
	now = now.Add(time.Minute)
	if _, err := m.Get(ctx, "s"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expired key still held after Get: %d", m.Len())
	}
}

func TestMemoryPurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(WithMemoryClock(func() time.Time { return now }))

	for key, ttl := range map[string]time.Duration{"blob:a": time.Minute, "blob:b": time.Minute, "draft": 0, "session:x": time.Hour} {
		if err := m.Set(ctx, key, []byte("v"), ttl); err != nil {
			t.Fatal(err)
		}
	}
	if n := m.PurgeExpired(); n != 0 || m.Len() != 4 {
		t.Fatalf("nothing should expire yet: purged %d, len %d", n, m.Len())
	}
	now = now.Add(2 * time.Minute)
	if n := m.PurgeExpired(); n != 2 {
		t.Fatalf("expected two expired blobs purged, got %d", n)
	}
	if m.Len() != 2 {
		t.Fatalf("expected draft and session to remain, len %d", m.Len())
	}
	if _, err := m.Get(ctx, "draft"); err != nil {
		t.Fatalf("draft without ttl purged: %v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	type payload struct {
		Step int `json:"step"`
	}
	if err := SetJSON(ctx, m, "p", payload{Step: 3}, 0); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	var got payload
	if err := GetJSON(ctx, m, "p", &got); err != nil || got.Step != 3 {
		t.Fatalf("GetJSON = %+v, %v", got, err)
	}
	_ = m.Set(ctx, "bad", []byte("{"), 0)
	if err := GetJSON(ctx, m, "bad", &got); err == nil {
		t.Fatal("expected decode error")
	}
	if err := Ping(ctx, m); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
