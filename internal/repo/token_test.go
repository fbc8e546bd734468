package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestTokenRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	exp := time.Now().Add(time.Hour)
	mock.ExpectQuery(`INSERT INTO access_tokens \(user_id, token_id, expires_at\)`).
		WithArgs(1, "tok-1", exp).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_id", "expires_at", "created_at"}).
			AddRow(9, 1, "tok-1", exp, time.Now()))

	repo := NewTokenRepo(db)
	tok, err := repo.Create(context.Background(), 1, "tok-1", exp)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tok.ID != 9 || tok.TokenID != "tok-1" {
		t.Errorf("unexpected token: %+v", tok)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestTokenRepo_Active(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("tok-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("tok-2", 1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	repo := NewTokenRepo(db)
	if ok, err := repo.Active(context.Background(), 1, "tok-1"); err != nil || !ok {
		t.Errorf("tok-1: got %v, %v", ok, err)
	}
	if ok, err := repo.Active(context.Background(), 1, "tok-2"); err != nil || ok {
		t.Errorf("tok-2: got %v, %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestTokenRepo_DeleteByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM access_tokens WHERE user_id = \$1`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 3))

	repo := NewTokenRepo(db)
	n, err := repo.DeleteByUser(context.Background(), 1)
	if err != nil || n != 3 {
		t.Errorf("DeleteByUser: got %d, %v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestTokenRepo_DeleteExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM access_tokens WHERE expires_at <= NOW\(\)`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := NewTokenRepo(db).DeleteExpired(context.Background())
	if err != nil || n != 4 {
		t.Errorf("DeleteExpired: got %d, %v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
