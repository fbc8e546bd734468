package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is one monetary outlay owned by exactly one user.
// Date is a calendar date stored at UTC midnight; Value carries two fractional digits.
// API responses render it through handlers.NewExpenseResource.
type Expense struct {
	ID          int
	Description string
	Date        time.Time
	Value       decimal.Decimal
	UserID      int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
