package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/andeen171/onfly-api/internal/expense"
	"github.com/andeen171/onfly-api/internal/models"
)

const expenseColumns = "id, description, date, value, user_id, created_at, updated_at"

// ExpenseRepo is the Postgres expense.Repository.
type ExpenseRepo struct {
	DB *sql.DB
}

var _ expense.Repository = (*ExpenseRepo)(nil)

func NewExpenseRepo(db *sql.DB) *ExpenseRepo {
	return &ExpenseRepo{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	e := &models.Expense{}
	if err := row.Scan(&e.ID, &e.Description, &e.Date, &e.Value, &e.UserID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Date = expense.Today(e.Date)
	return e, nil
}

// Create inserts an expense owned by ownerID.
func (r *ExpenseRepo) Create(ctx context.Context, ownerID int, f expense.Fields) (*models.Expense, error) {
	row := r.DB.QueryRowContext(ctx,
		`INSERT INTO expenses (user_id, description, date, value)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+expenseColumns,
		ownerID, f.Description, f.Date.Format(expense.DateLayout), f.Value.StringFixed(2),
	)
	return scanExpense(row)
}

// Find returns the expense with id regardless of owner, or expense.ErrNotFound.
func (r *ExpenseRepo) Find(ctx context.Context, id int) (*models.Expense, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1`,
		id,
	)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, expense.ErrNotFound
	}
	return e, err
}

func (r *ExpenseRepo) ListByOwner(ctx context.Context, ownerID, limit, offset int) ([]models.Expense, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

func (r *ExpenseRepo) CountByOwner(ctx context.Context, ownerID int) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE user_id = $1`, ownerID).Scan(&n)
	return n, err
}

// Update replaces description, date and value. The owner never changes.
func (r *ExpenseRepo) Update(ctx context.Context, e *models.Expense, f expense.Fields) (*models.Expense, error) {
	row := r.DB.QueryRowContext(ctx,
		`UPDATE expenses
		 SET description = $1, date = $2, value = $3, updated_at = NOW()
		 WHERE id = $4 AND user_id = $5
		 RETURNING `+expenseColumns,
		f.Description, f.Date.Format(expense.DateLayout), f.Value.StringFixed(2), e.ID, e.UserID,
	)
	updated, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, expense.ErrNotFound
	}
	return updated, err
}

func (r *ExpenseRepo) Delete(ctx context.Context, e *models.Expense) error {
	result, err := r.DB.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = $1 AND user_id = $2`,
		e.ID, e.UserID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return expense.ErrNotFound
	}
	return nil
}
