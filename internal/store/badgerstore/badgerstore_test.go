package badgerstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"c2d.dev/portal/internal/store"
)

func TestInMemoryRoundTrip(t *testing.T) {
	s, err := OpenInMemory(zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if _, err := s.Get(ctx, "onboarding_form_data"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Set(ctx, "onboarding_form_data", []byte(`{"companyRegistration":{}}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "onboarding_form_data")
	if err != nil || string(got) != `{"companyRegistration":{}}` {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := s.Remove(ctx, "onboarding_form_data"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get(ctx, "onboarding_form_data"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected removal, got %v", err)
	}
	if err := s.RunGC(); err != nil {
		t.Fatalf("RunGC: %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(ctx); err == nil {
		t.Fatal("expected ping to fail after close")
	}

	s, err = Open(dir, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get after reopen = %q, %v", got, err)
	}
}
