package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/andeen171/onfly-api/internal/auth"
	"github.com/andeen171/onfly-api/internal/middleware"
	"github.com/andeen171/onfly-api/internal/notify"
	"github.com/andeen171/onfly-api/internal/repo"
	"github.com/andeen171/onfly-api/internal/validation"
)

var inputValidator = validation.New()

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	UserRepo *repo.UserRepo
	Tokens   *auth.Issuer
	Notifier *notify.Dispatcher
}

type registerInput struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8,maxbytes=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ==========================
// Register (creates the user and logs it in)
// ==========================
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input registerInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Email = repo.NormalizeEmail(input.Email)

	if !validateInput(w, r, input) {
		return
	}

	user, err := h.UserRepo.Create(r.Context(), input.Name, input.Email, input.Password)
	if errors.Is(err, repo.ErrEmailTaken) {
		JSONValidationError(w, errMessageValidation, map[string][]string{
			"email": {"The email has already been taken."},
		}, http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		internalError(w, r, "register: create user failed", err)
		return
	}

	token, err := h.Tokens.Issue(r.Context(), user.ID)
	if err != nil {
		internalError(w, r, "register: issue token failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
	h.Notifier.Dispatch(r.Context(), notify.ForUser(notify.KindUserRegistered, user, time.Now()))
}

// ==========================
// Login (email + password, returns a bearer token)
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Email = repo.NormalizeEmail(input.Email)

	if !validateInput(w, r, input) {
		return
	}

	user, err := h.UserRepo.GetByEmail(r.Context(), input.Email)
	if err != nil && !errors.Is(err, repo.ErrUserNotFound) {
		internalError(w, r, "login: load user failed", err)
		return
	}
	if !repo.CheckPassword(user, input.Password) {
		JSONError(w, "invalid email or password", http.StatusUnauthorized)
		return
	}

	token, err := h.Tokens.Issue(r.Context(), user.ID)
	if err != nil {
		internalError(w, r, "login: issue token failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ==========================
// Me (current user)
// ==========================
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		JSONError(w, errMessageUnauthenticated, http.StatusUnauthorized)
		return
	}

	user, err := h.UserRepo.GetByID(r.Context(), userID)
	if errors.Is(err, repo.ErrUserNotFound) {
		JSONError(w, errMessageUnauthenticated, http.StatusUnauthorized)
		return
	}
	if err != nil {
		internalError(w, r, "me: load user failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// ==========================
// Logout (revokes every token of the user)
// ==========================
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		JSONError(w, errMessageUnauthenticated, http.StatusUnauthorized)
		return
	}

	if err := h.Tokens.RevokeAll(r.Context(), userID); err != nil {
		internalError(w, r, "logout: revoke tokens failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func validateInput(w http.ResponseWriter, r *http.Request, input any) bool {
	err := validation.Struct(inputValidator, input)
	if err == nil {
		return true
	}
	var fieldErrs validation.FieldErrors
	if errors.As(err, &fieldErrs) {
		JSONValidationError(w, errMessageValidation, fieldErrs, http.StatusUnprocessableEntity)
		return false
	}
	internalError(w, r, "validate input failed", err)
	return false
}
