package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/lib/pq"

	"github.com/candyops/mint_layer/internal/app/domain/mint"
	"github.com/candyops/mint_layer/internal/app/storage"
	"github.com/candyops/mint_layer/internal/platform/migrations"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestCreateAttemptAssignsID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO mint_attempts").
		WillReturnResult(sqlmock.NewResult(0, 1))

	att, err := store.CreateAttempt(context.Background(), mint.Attempt{
		Wallet:    "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		State:     mint.StateValidating,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	if att.ID == "" {
		t.Fatal("expected generated attempt ID")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateAttemptNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE mint_attempts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdateAttempt(context.Background(), mint.Attempt{ID: "missing", State: mint.StateFailed})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAttemptScansRow(t *testing.T) {
	store, mock := newMockStore(t)

	started := time.Now().UTC().Truncate(time.Second)
	finished := started.Add(12 * time.Second)
	rows := sqlmock.NewRows([]string{
		"id", "wallet", "state", "transaction_id", "mint_address",
		"error_category", "error_detail", "started_at", "finished_at",
	}).AddRow("a1", "wallet1", "succeeded", "sig1", "mint1", "", "", started, finished)

	mock.ExpectQuery("SELECT .* FROM mint_attempts").
		WithArgs("a1").
		WillReturnRows(rows)

	att, err := store.GetAttempt(context.Background(), "a1")
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if att.State != mint.StateSucceeded {
		t.Fatalf("expected succeeded state, got %s", att.State)
	}
	if att.FinishedAt == nil || !att.FinishedAt.Equal(finished) {
		t.Fatalf("expected finished_at %v, got %v", finished, att.FinishedAt)
	}
}

func TestGetAttemptNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .* FROM mint_attempts").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetAttempt(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCountSucceededByWallet(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("wallet1", "succeeded").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := store.CountSucceededByWallet(context.Background(), "wallet1")
	if err != nil {
		t.Fatalf("count succeeded: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := New(db)

	att, err := store.CreateAttempt(ctx, mint.Attempt{
		Wallet:    "integration-wallet",
		State:     mint.StateValidating,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	att.State = mint.StateSucceeded
	now := time.Now().UTC()
	att.FinishedAt = &now
	if _, err := store.UpdateAttempt(ctx, att); err != nil {
		t.Fatalf("update attempt: %v", err)
	}

	n, err := store.CountSucceededByWallet(ctx, "integration-wallet")
	if err != nil {
		t.Fatalf("count succeeded: %v", err)
	}
	if n < 1 {
		t.Fatalf("expected at least one succeeded attempt, got %d", n)
	}
}
