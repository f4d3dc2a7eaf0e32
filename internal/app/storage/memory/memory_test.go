package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/candyops/mint_layer/internal/app/domain/mint"
	"github.com/candyops/mint_layer/internal/app/storage"
)

func TestCreateAndGetAttempt(t *testing.T) {
	store := New()
	ctx := context.Background()

	att := mint.Attempt{
		ID:        "a1",
		Wallet:    "wallet1",
		State:     mint.StateValidating,
		StartedAt: time.Now().UTC(),
	}
	if _, err := store.CreateAttempt(ctx, att); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	got, err := store.GetAttempt(ctx, "a1")
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if got.Wallet != "wallet1" || got.State != mint.StateValidating {
		t.Fatalf("unexpected attempt: %+v", got)
	}
}

func TestCreateAttemptRequiresID(t *testing.T) {
	store := New()
	if _, err := store.CreateAttempt(context.Background(), mint.Attempt{Wallet: "w"}); err == nil {
		t.Fatal("expected error for missing ID")
	}
}

func TestCreateAttemptRejectsDuplicate(t *testing.T) {
	store := New()
	ctx := context.Background()

	att := mint.Attempt{ID: "a1", Wallet: "w", State: mint.StateValidating}
	if _, err := store.CreateAttempt(ctx, att); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	if _, err := store.CreateAttempt(ctx, att); err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestUpdateAttemptPreservesStartedAt(t *testing.T) {
	store := New()
	ctx := context.Background()

	started := time.Now().UTC().Add(-time.Minute)
	att := mint.Attempt{ID: "a1", Wallet: "w", State: mint.StateSubmitting, StartedAt: started}
	if _, err := store.CreateAttempt(ctx, att); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	att.State = mint.StateSucceeded
	att.StartedAt = time.Now().UTC()
	updated, err := store.UpdateAttempt(ctx, att)
	if err != nil {
		t.Fatalf("update attempt: %v", err)
	}
	if !updated.StartedAt.Equal(started) {
		t.Fatalf("expected original started_at %v, got %v", started, updated.StartedAt)
	}
}

func TestUpdateAttemptNotFound(t *testing.T) {
	store := New()
	_, err := store.UpdateAttempt(context.Background(), mint.Attempt{ID: "missing"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAttemptsNewestFirstWithLimit(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		att := mint.Attempt{
			ID:        fmt.Sprintf("a%d", i),
			Wallet:    "wallet1",
			State:     mint.StateFailed,
			StartedAt: time.Now().UTC(),
		}
		if _, err := store.CreateAttempt(ctx, att); err != nil {
			t.Fatalf("create attempt %d: %v", i, err)
		}
	}

	got, err := store.ListAttempts(ctx, "wallet1", 3)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(got))
	}
	if got[0].ID != "a4" || got[2].ID != "a2" {
		t.Fatalf("expected newest first, got %s..%s", got[0].ID, got[2].ID)
	}
}

func TestListAttemptsFiltersByWallet(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i, wallet := range []string{"w1", "w2", "w1"} {
		att := mint.Attempt{ID: fmt.Sprintf("a%d", i), Wallet: wallet, State: mint.StateSucceeded}
		if _, err := store.CreateAttempt(ctx, att); err != nil {
			t.Fatalf("create attempt %d: %v", i, err)
		}
	}

	got, err := store.ListAttempts(ctx, "w1", 0)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 attempts for w1, got %d", len(got))
	}
}

func TestCountSucceededByWallet(t *testing.T) {
	store := New()
	ctx := context.Background()

	states := []mint.AttemptState{mint.StateSucceeded, mint.StateFailed, mint.StateSucceeded}
	for i, state := range states {
		att := mint.Attempt{ID: fmt.Sprintf("a%d", i), Wallet: "w1", State: state}
		if _, err := store.CreateAttempt(ctx, att); err != nil {
			t.Fatalf("create attempt %d: %v", i, err)
		}
	}

	n, err := store.CountSucceededByWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("count succeeded: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 succeeded, got %d", n)
	}
}
