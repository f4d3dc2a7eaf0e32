package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/candyops/mint_layer/internal/app/domain/mint"
	"github.com/candyops/mint_layer/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.AttemptStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateAttempt(ctx context.Context, att mint.Attempt) (mint.Attempt, error) {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mint_attempts (id, wallet, state, transaction_id, mint_address, error_category, error_detail, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, att.ID, att.Wallet, string(att.State), att.TransactionID, att.MintAddress, string(att.ErrorCategory), att.ErrorDetail, att.StartedAt, nullTimePtr(att.FinishedAt))
	if err != nil {
		return mint.Attempt{}, err
	}
	return att, nil
}

func (s *Store) UpdateAttempt(ctx context.Context, att mint.Attempt) (mint.Attempt, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE mint_attempts
		SET state = $2, transaction_id = $3, mint_address = $4, error_category = $5, error_detail = $6, finished_at = $7
		WHERE id = $1
	`, att.ID, string(att.State), att.TransactionID, att.MintAddress, string(att.ErrorCategory), att.ErrorDetail, nullTimePtr(att.FinishedAt))
	if err != nil {
		return mint.Attempt{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return mint.Attempt{}, fmt.Errorf("attempt %s: %w", att.ID, storage.ErrNotFound)
	}
	return att, nil
}

func (s *Store) GetAttempt(ctx context.Context, id string) (mint.Attempt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, wallet, state, transaction_id, mint_address, error_category, error_detail, started_at, finished_at
		FROM mint_attempts
		WHERE id = $1
	`, id)

	att, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return mint.Attempt{}, fmt.Errorf("attempt %s: %w", id, storage.ErrNotFound)
	}
	return att, err
}

func (s *Store) ListAttempts(ctx context.Context, wallet string, limit int) ([]mint.Attempt, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wallet, state, transaction_id, mint_address, error_category, error_detail, started_at, finished_at
		FROM mint_attempts
		WHERE $1 = '' OR wallet = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, wallet, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []mint.Attempt
	for rows.Next() {
		att, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, rows.Err()
}

func (s *Store) CountSucceededByWallet(ctx context.Context, wallet string) (int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM mint_attempts
		WHERE wallet = $1 AND state = $2
	`, wallet, string(mint.StateSucceeded))

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (mint.Attempt, error) {
	var (
		att        mint.Attempt
		state      string
		category   string
		finishedAt sql.NullTime
	)
	if err := row.Scan(&att.ID, &att.Wallet, &state, &att.TransactionID, &att.MintAddress, &category, &att.ErrorDetail, &att.StartedAt, &finishedAt); err != nil {
		return mint.Attempt{}, err
	}
	att.State = mint.AttemptState(state)
	att.ErrorCategory = mint.ErrorCategory(category)
	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		att.FinishedAt = &t
	}
	return att, nil
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
