package repository

import (
	"context"
	"errors"
	"fmt"

	"tareas_api/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TokenRepository struct {
	db *pgxpool.Pool
}

func NewTokenRepository(db *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) GetByKey(ctx context.Context, key string) (*domain.Token, error) {
	var t domain.Token
	err := r.db.QueryRow(ctx,
		`SELECT key, user_id, created_at FROM auth_tokens WHERE key = $1`, key,
	).Scan(&t.Key, &t.UserID, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// GetOrCreate returns the user's token, inserting one with candidateKey if
// the user has none. created reports whether the insert happened.
func (r *TokenRepository) GetOrCreate(ctx context.Context, userID int64, candidateKey string) (*domain.Token, bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var t domain.Token
	err = tx.QueryRow(ctx,
		`INSERT INTO auth_tokens (key, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING
		 RETURNING key, user_id, created_at`,
		candidateKey, userID,
	).Scan(&t.Key, &t.UserID, &t.CreatedAt)

	created := true
	if errors.Is(err, pgx.ErrNoRows) {
		created = false
		err = tx.QueryRow(ctx,
			`SELECT key, user_id, created_at FROM auth_tokens WHERE user_id = $1`, userID,
		).Scan(&t.Key, &t.UserID, &t.CreatedAt)
	}
	if err != nil {
		return nil, false, fmt.Errorf("get or create token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return &t, created, nil
}

// Replace drops the user's current token (if any) and stores newKey in its
// place. The previous token is returned so callers can evict it from caches.
func (r *TokenRepository) Replace(ctx context.Context, userID int64, newKey string) (*domain.Token, *domain.Token, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var old *domain.Token
	var prev domain.Token
	err = tx.QueryRow(ctx,
		`DELETE FROM auth_tokens WHERE user_id = $1 RETURNING key, user_id, created_at`, userID,
	).Scan(&prev.Key, &prev.UserID, &prev.CreatedAt)
	switch {
	case err == nil:
		old = &prev
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, nil, fmt.Errorf("delete previous token: %w", err)
	}

	var t domain.Token
	if err := tx.QueryRow(ctx,
		`INSERT INTO auth_tokens (key, user_id) VALUES ($1, $2) RETURNING key, user_id, created_at`,
		newKey, userID,
	).Scan(&t.Key, &t.UserID, &t.CreatedAt); err != nil {
		return nil, nil, fmt.Errorf("insert token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return &t, old, nil
}

// DeleteByUser removes the user's token and returns it.
func (r *TokenRepository) DeleteByUser(ctx context.Context, userID int64) (*domain.Token, error) {
	var t domain.Token
	err := r.db.QueryRow(ctx,
		`DELETE FROM auth_tokens WHERE user_id = $1 RETURNING key, user_id, created_at`, userID,
	).Scan(&t.Key, &t.UserID, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// DeleteByKey removes one specific token. A token that was already replaced
// is domain.ErrNotFound.
func (r *TokenRepository) DeleteByKey(ctx context.Context, key string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM auth_tokens WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
