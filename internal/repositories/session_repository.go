package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/db"
)

// PostgresSlotStore keeps each user's refresh token on the users row.
type PostgresSlotStore struct {
	pool db.Pool
}

// NewPostgresSlotStore constructs a refresh slot store backed by PostgreSQL.
func NewPostgresSlotStore(pool db.Pool) *PostgresSlotStore {
	return &PostgresSlotStore{pool: pool}
}

// SaveRefreshToken overwrites the user's refresh slot.
func (s *PostgresSlotStore) SaveRefreshToken(ctx context.Context, userID, token string) error {
	return s.set(ctx, userID, token)
}

// RefreshToken loads the token held in the user's slot.
func (s *PostgresSlotStore) RefreshToken(ctx context.Context, userID string) (string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var token string
	if err := conn.QueryRow(ctx, `SELECT refresh_token FROM users WHERE id = $1`, userID).Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", auth.ErrSlotNotFound
		}
		return "", fmt.Errorf("select refresh token: %w", err)
	}

	return token, nil
}

// ClearRefreshToken empties the user's refresh slot.
func (s *PostgresSlotStore) ClearRefreshToken(ctx context.Context, userID string) error {
	return s.set(ctx, userID, "")
}

func (s *PostgresSlotStore) set(ctx context.Context, userID, token string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE users SET refresh_token = $2 WHERE id = $1`, userID, token)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrSlotNotFound
	}

	return nil
}

var _ auth.SlotStore = (*PostgresSlotStore)(nil)
