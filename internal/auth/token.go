// Package auth issues and verifies the API's bearer tokens.
//
// Tokens are HS256 JWTs carrying the user id and a random jti. Every issued jti
// is recorded in a TokenStore, so a token stays valid only while its row exists.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andeen171/onfly-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("token revoked")
)

// TokenStore records issued token ids. *repo.TokenRepo satisfies it.
type TokenStore interface {
	Create(ctx context.Context, userID int, tokenID string, expiresAt time.Time) (*models.AccessToken, error)
	Active(ctx context.Context, userID int, tokenID string) (bool, error)
	DeleteByUser(ctx context.Context, userID int) (int64, error)
}

// Claims is the JWT payload.
type Claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	store  TokenStore
	now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration, store TokenStore) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, store: store, now: time.Now}
}

// WithClock replaces the issuer's clock. Tests only.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue signs a new token for userID and records its jti.
func (i *Issuer) Issue(ctx context.Context, userID int) (string, error) {
	now := i.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	if _, err := i.store.Create(ctx, userID, claims.ID, claims.ExpiresAt.Time); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and that the token has not been revoked.
func (i *Issuer) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID <= 0 || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	active, err := i.store.Active(ctx, claims.UserID, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check token: %w", err)
	}
	if !active {
		return nil, ErrRevoked
	}
	return claims, nil
}

// RevokeAll deletes every token of the user.
func (i *Issuer) RevokeAll(ctx context.Context, userID int) error {
	if _, err := i.store.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}
