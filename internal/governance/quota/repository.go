package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists per-user quota state.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (*Quota, error)
	// Reset zeroes usage and stamps now, but only while last_token_reset
	// still equals prevReset. It reports whether this call won.
	Reset(ctx context.Context, userID uuid.UUID, prevReset, now time.Time) (bool, error)
	IncrementUsage(ctx context.Context, userID uuid.UUID, tokens int64) error
}

// Repository reads and writes the quota columns of the users table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quota Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*Quota, error) {
	q := Quota{UserID: userID}
	err := r.pool.QueryRow(ctx,
		`SELECT ai_token_limit, ai_tokens_used, last_token_reset
		 FROM users WHERE id = $1`, userID,
	).Scan(&q.TokenLimit, &q.TokensUsed, &q.LastTokenReset)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching user quota: %w", err)
	}
	return &q, nil
}

func (r *Repository) Reset(ctx context.Context, userID uuid.UUID, prevReset, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET ai_tokens_used = 0,
		     last_token_reset = $3,
		     updated_at = NOW()
		 WHERE id = $1 AND last_token_reset = $2`, userID, prevReset, now)
	if err != nil {
		return false, fmt.Errorf("resetting monthly quota: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// IncrementUsage adds tokens in a single statement so concurrent requests
// never lose an update. Usage is not clamped to the limit.
func (r *Repository) IncrementUsage(ctx context.Context, userID uuid.UUID, tokens int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET ai_tokens_used = ai_tokens_used + $2,
		     updated_at = NOW()
		 WHERE id = $1`, userID, tokens)
	if err != nil {
		return fmt.Errorf("incrementing token usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
