package idempotency

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestMemoryStoreReserveWinnerAndPending(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	first, err := store.Reserve(ctx, "key-1", "fp-1", now, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.State != ReservationStateNew {
		t.Fatalf("expected new reservation, got %v", first.State)
	}

	second, err := store.Reserve(ctx, "key-1", "fp-1", now.Add(time.Second), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.State != ReservationStatePending {
		t.Fatalf("expected pending reservation, got %v", second.State)
	}
}

func TestMemoryStoreFingerprintMismatch(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, err := store.Reserve(ctx, "key-1", "fp-1", now, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := store.Reserve(ctx, "key-1", "fp-other", now, time.Hour)
	if !errors.Is(err, ErrFingerprintMismatch) {
		t.Fatalf("expected ErrFingerprintMismatch, got %v", err)
	}
}

func TestMemoryStoreReplayCompletedResponse(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, err := store.Reserve(ctx, "key-1", "fp-1", now, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := Response{
		Status:  http.StatusCreated,
		Headers: http.Header{"Content-Type": []string{"application/json"}},
		Body:    []byte(`{"id":42}`),
	}
	if err := store.SaveResponse(ctx, "key-1", "fp-1", resp, now, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	replay, err := store.Reserve(ctx, "key-1", "fp-1", now.Add(time.Minute), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replay.State != ReservationStateCompleted {
		t.Fatalf("expected completed reservation, got %v", replay.State)
	}
	if replay.Record.ResponseStatus != http.StatusCreated {
		t.Fatalf("expected stored status 201, got %d", replay.Record.ResponseStatus)
	}
	if string(replay.Record.ResponseBody) != `{"id":42}` {
		t.Fatalf("unexpected stored body %q", replay.Record.ResponseBody)
	}
}

func TestMemoryStoreExpiredReservationReopens(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, err := store.Reserve(ctx, "key-1", "fp-1", now, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	later, err := store.Reserve(ctx, "key-1", "fp-1", now.Add(2*time.Minute), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if later.State != ReservationStateNew {
		t.Fatalf("expected expired key to reopen, got %v", later.State)
	}
}

func TestMemoryStoreCleanupExpired(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, err := store.Reserve(ctx, "key-1", "fp-1", now, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Reserve(ctx, "key-2", "fp-2", now, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	removed, err := store.CleanupExpired(ctx, now.Add(10*time.Minute), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed record, got %d", removed)
	}
}

func TestMemoryStoreRelease(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, err := store.Reserve(ctx, "key-1", "fp-1", now, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Release(ctx, "key-1", "fp-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again, err := store.Reserve(ctx, "key-1", "fp-1", now, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.State != ReservationStateNew {
		t.Fatalf("expected released key to reopen, got %v", again.State)
	}
}
