// Package expense holds the rules every expense write and read goes through:
// payload validation, the ownership gate and the storage contract.
package expense

import (
	"context"
	"errors"
	"time"

	"github.com/andeen171/onfly-api/internal/models"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by a Repository when no row exists for an id.
var ErrNotFound = errors.New("expense not found")

// Subject is the authenticated user a request acts for.
type Subject struct {
	UserID int
}

// Fields are the client-writable attributes of an expense after validation.
type Fields struct {
	Description string
	Date        time.Time
	Value       decimal.Decimal
}

// Repository stores expenses. Mutations take the resolved expense so they stay
// scoped to its owner.
type Repository interface {
	Create(ctx context.Context, ownerID int, f Fields) (*models.Expense, error)
	Find(ctx context.Context, id int) (*models.Expense, error)
	// ListByOwner returns newest first (created_at, then id).
	ListByOwner(ctx context.Context, ownerID, limit, offset int) ([]models.Expense, error)
	CountByOwner(ctx context.Context, ownerID int) (int, error)
	Update(ctx context.Context, e *models.Expense, f Fields) (*models.Expense, error)
	Delete(ctx context.Context, e *models.Expense) error
}
