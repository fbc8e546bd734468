package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/andeen171/onfly-api/internal/models"
)

// TokenRepo persists issued bearer token ids so logout can revoke them.
type TokenRepo struct {
	DB *sql.DB
}

func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{DB: db}
}

func (r *TokenRepo) Create(ctx context.Context, userID int, tokenID string, expiresAt time.Time) (*models.AccessToken, error) {
	t := &models.AccessToken{}
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO access_tokens (user_id, token_id, expires_at)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, token_id, expires_at, created_at`,
		userID, tokenID, expiresAt,
	).Scan(&t.ID, &t.UserID, &t.TokenID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Active reports whether tokenID belongs to userID and has not expired or been revoked.
func (r *TokenRepo) Active(ctx context.Context, userID int, tokenID string) (bool, error) {
	var ok bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM access_tokens
			WHERE token_id = $1 AND user_id = $2 AND expires_at > NOW()
		 )`,
		tokenID, userID,
	).Scan(&ok)
	return ok, err
}

// DeleteByUser revokes every token of the user and returns how many were removed.
func (r *TokenRepo) DeleteByUser(ctx context.Context, userID int) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM access_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteExpired removes tokens whose expiry has passed.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM access_tokens WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
