package models

import "time"

// AccessToken records an issued bearer token by its JWT id so it can be revoked.
type AccessToken struct {
	ID        int
	UserID    int
	TokenID   string
	ExpiresAt time.Time
	CreatedAt time.Time
}
