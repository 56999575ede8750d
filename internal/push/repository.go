package push

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Cipher encrypts key material at rest. auth.Encryptor implements it.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertextHex string) (string, error)
}

type Repository interface {
	Upsert(ctx context.Context, sub *Subscription) error
	List(ctx context.Context) ([]Subscription, error)
	Delete(ctx context.Context, endpoint string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type pgRepository struct {
	pool   *pgxpool.Pool
	cipher Cipher
}

// NewRepository creates the PostgreSQL subscription store. The p256dh and
// auth keys are stored encrypted with cipher.
func NewRepository(pool *pgxpool.Pool, cipher Cipher) Repository {
	return &pgRepository{pool: pool, cipher: cipher}
}

func (r *pgRepository) Upsert(ctx context.Context, sub *Subscription) error {
	p256dh, err := r.cipher.Encrypt(sub.P256dh)
	if err != nil {
		return fmt.Errorf("encrypting p256dh: %w", err)
	}
	authKey, err := r.cipher.Encrypt(sub.Auth)
	if err != nil {
		return fmt.Errorf("encrypting auth key: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO push_subscriptions (endpoint, p256dh, auth)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (endpoint) DO UPDATE SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth, updated_at = NOW()
		 RETURNING created_at, updated_at`,
		sub.Endpoint, p256dh, authKey,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting push subscription: %w", err)
	}
	return nil
}

// List returns every subscription with decrypted keys. Rows that fail to
// decrypt are skipped and logged.
func (r *pgRepository) List(ctx context.Context) ([]Subscription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT endpoint, p256dh, auth, created_at, updated_at FROM push_subscriptions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing push subscriptions: %w", err)
	}
	stored, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Subscription, error) {
		var s Subscription
		err := row.Scan(&s.Endpoint, &s.P256dh, &s.Auth, &s.CreatedAt, &s.UpdatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning push subscriptions: %w", err)
	}

	subs := make([]Subscription, 0, len(stored))
	for _, s := range stored {
		p256dh, err := r.cipher.Decrypt(s.P256dh)
		if err != nil {
			slog.Warn("skipping undecryptable push subscription", "endpoint", s.Endpoint, "error", err)
			continue
		}
		authKey, err := r.cipher.Decrypt(s.Auth)
		if err != nil {
			slog.Warn("skipping undecryptable push subscription", "endpoint", s.Endpoint, "error", err)
			continue
		}
		s.P256dh, s.Auth = p256dh, authKey
		subs = append(subs, s)
	}
	return subs, nil
}

func (r *pgRepository) Delete(ctx context.Context, endpoint string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		return false, fmt.Errorf("deleting push subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM push_subscriptions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting push subscriptions: %w", err)
	}
	return n, nil
}
