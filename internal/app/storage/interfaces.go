package storage

import (
	"context"
	"errors"

	"github.com/candyops/mint_layer/internal/app/domain/mint"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// AttemptStore persists the audit trail of mint attempts. Attempts are
// written on creation and updated as they move through their lifecycle, so
// history survives restarts when a database is configured.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, att mint.Attempt) (mint.Attempt, error)
	UpdateAttempt(ctx context.Context, att mint.Attempt) (mint.Attempt, error)
	GetAttempt(ctx context.Context, id string) (mint.Attempt, error)

	// ListAttempts returns attempts newest first, capped at limit. An empty
	// wallet returns attempts for all wallets.
	ListAttempts(ctx context.Context, wallet string, limit int) ([]mint.Attempt, error)

	// CountSucceededByWallet reports how many attempts by the wallet have
	// reached the succeeded state.
	CountSucceededByWallet(ctx context.Context, wallet string) (int, error)

	Close() error
}
