package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/andeen171/onfly-api/internal/auth"
	"github.com/andeen171/onfly-api/internal/middleware"
	"github.com/andeen171/onfly-api/internal/repo"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	repo.BcryptCost = bcrypt.MinCost
}

func newAuthHandler(db *sql.DB) *AuthHandler {
	return &AuthHandler{
		UserRepo: repo.NewUserRepo(db),
		Tokens:   auth.NewIssuer([]byte("test-secret"), time.Hour, repo.NewTokenRepo(db)),
	}
}

func postJSON(path string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func expectTokenInsert(mock sqlmock.Sqlmock, userID int) {
	mock.ExpectQuery(`INSERT INTO access_tokens`).
		WithArgs(userID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_id", "expires_at", "created_at"}).
			AddRow(1, userID, "jti", time.Now().Add(time.Hour), time.Now()))
}

func TestAuthHandler_Register(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("Alice", "alice@example.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "created_at", "updated_at"}).
			AddRow(1, "Alice", "alice@example.com", now, now))
	expectTokenInsert(mock, 1)

	h := newAuthHandler(db)
	rr := httptest.NewRecorder()
	h.Register(rr, postJSON("/register", map[string]string{
		"name":                  "Alice",
		"email":                 "Alice@Example.com",
		"password":              "password",
		"password_confirmation": "password",
	}))

	if rr.Code != http.StatusOK {
		t.Fatalf("Register status: got %d, body %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if strings.Count(out.Token, ".") != 2 {
		t.Errorf("expected a JWT, got %q", out.Token)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h := newAuthHandler(db)
	rr := httptest.NewRecorder()
	h.Register(rr, postJSON("/register", map[string]string{
		"email":                 "not-an-email",
		"password":              "password",
		"password_confirmation": "different",
	}))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	fields := decodeFields(t, rr)
	for _, f := range []string{"name", "email", "password"} {
		if len(fields[f]) == 0 {
			t.Errorf("expected error on %s, got %v", f, fields)
		}
	}
	if got := strings.Join(fields["password"], " "); !strings.Contains(got, "confirmation does not match") {
		t.Errorf("unexpected password errors: %v", fields["password"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no queries expected: %v", err)
	}
}

func TestAuthHandler_Register_PasswordOverBcryptLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	// 40 runes but 80 bytes
	password := strings.Repeat("é", 40)
	h := newAuthHandler(db)
	rr := httptest.NewRecorder()
	h.Register(rr, postJSON("/register", map[string]string{
		"name":                  "Alice",
		"email":                 "alice@example.com",
		"password":              password,
		"password_confirmation": password,
	}))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}
	fields := decodeFields(t, rr)
	if got := fields["password"]; len(got) != 1 || got[0] != "The password may not be greater than 72 bytes." {
		t.Errorf("unexpected password errors: %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no queries expected: %v", err)
	}
}

func TestAuthHandler_Register_EmailTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("Alice", "alice@example.com", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	h := newAuthHandler(db)
	rr := httptest.NewRecorder()
	h.Register(rr, postJSON("/register", map[string]string{
		"name":                  "Alice",
		"email":                 "alice@example.com",
		"password":              "password",
		"password_confirmation": "password",
	}))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if fields := decodeFields(t, rr); len(fields["email"]) != 1 {
		t.Errorf("expected email error, got %v", fields)
	}
}

func TestAuthHandler_Login(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	now := time.Now()
	mock.ExpectQuery(`SELECT id, name, email, password_hash`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at", "updated_at"}).
			AddRow(1, "Alice", "alice@example.com", string(hash), now, now))
	expectTokenInsert(mock, 1)

	h := newAuthHandler(db)
	rr := httptest.NewRecorder()
	h.Login(rr, postJSON("/login", map[string]string{"email": "alice@example.com", "password": "password"}))

	if rr.Code != http.StatusOK {
		t.Fatalf("Login status: got %d, body %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"token"`) {
		t.Errorf("expected token in body, got %s", rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	now := time.Now()
	mock.ExpectQuery(`SELECT id, name, email, password_hash`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at", "updated_at"}).
			AddRow(1, "Alice", "alice@example.com", string(hash), now, now))
	mock.ExpectQuery(`SELECT id, name, email, password_hash`).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at", "updated_at"}))

	h := newAuthHandler(db)
	for _, body := range []map[string]string{
		{"email": "alice@example.com", "password": "wrong-password"},
		{"email": "nobody@example.com", "password": "password"},
	} {
		rr := httptest.NewRecorder()
		h.Login(rr, postJSON("/login", body))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", body["email"], rr.Code)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAuthHandler_Login_Validation(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rr := httptest.NewRecorder()
	newAuthHandler(db).Login(rr, postJSON("/login", map[string]string{"email": "nope"}))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	fields := decodeFields(t, rr)
	if len(fields["email"]) == 0 || len(fields["password"]) == 0 {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, name, email, password_hash`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at", "updated_at"}).
			AddRow(1, "Alice", "alice@example.com", "secret-hash", now, now))

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), 1))
	rr := httptest.NewRecorder()
	newAuthHandler(db).Me(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "secret-hash") || strings.Contains(body, "password") {
		t.Errorf("password hash leaked: %s", body)
	}
	var out struct {
		User struct {
			ID    int    `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	json.Unmarshal([]byte(body), &out)
	if out.User.ID != 1 || out.User.Email != "alice@example.com" {
		t.Errorf("unexpected user %+v", out.User)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM access_tokens WHERE user_id = \$1`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 2))

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), 1))
	rr := httptest.NewRecorder()
	newAuthHandler(db).Logout(rr, req)

	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Logged out") {
		t.Errorf("unexpected response %d %s", rr.Code, rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAuthHandler_Unauthenticated(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	h := newAuthHandler(db)
	for name, fn := range map[string]http.HandlerFunc{"me": h.Me, "logout": h.Logout} {
		rr := httptest.NewRecorder()
		fn(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rr.Code)
		}
	}
}
