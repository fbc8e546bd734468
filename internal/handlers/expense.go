package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/andeen171/onfly-api/internal/expense"
	"github.com/andeen171/onfly-api/internal/metrics"
	"github.com/andeen171/onfly-api/internal/middleware"
	"github.com/andeen171/onfly-api/internal/models"
	"github.com/andeen171/onfly-api/internal/notify"
	"github.com/andeen171/onfly-api/internal/validation"
	"github.com/go-chi/chi/v5"
)

// ExpenseHandler serves /expenses. Every operation runs
// authenticate, resolve, validate, authorize, persist, shape, notify, in that order.
type ExpenseHandler struct {
	Repo      expense.Repository
	Validator *expense.Validator
	Notifier  *notify.Dispatcher
	Now       func() time.Time
}

func NewExpenseHandler(repo expense.Repository, v *expense.Validator, n *notify.Dispatcher) *ExpenseHandler {
	return &ExpenseHandler{Repo: repo, Validator: v, Notifier: n, Now: time.Now}
}

//
// ==========================
// List Expenses
// ==========================
//

func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	subject, ok := subjectFrom(w, r)
	if !ok {
		return
	}
	if !h.authorize(w, subject, expense.ViewAny, nil) {
		return
	}

	req := parsePageRequest(r.URL.Query())

	total, err := h.Repo.CountByOwner(r.Context(), subject.UserID)
	if err != nil {
		internalError(w, r, "count expenses failed", err)
		return
	}
	list, err := h.Repo.ListByOwner(r.Context(), subject.UserID, req.Limit, req.Offset())
	if err != nil {
		internalError(w, r, "list expenses failed", err)
		return
	}

	writeJSON(w, http.StatusOK, newExpensePage(r, req, list, total))
}

//
// ==========================
// Create Expense
// ==========================
//

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	subject, ok := subjectFrom(w, r)
	if !ok {
		return
	}

	fields, ok := h.validate(w, r)
	if !ok {
		return
	}
	if !h.authorize(w, subject, expense.Create, nil) {
		return
	}

	// owner always comes from the subject; a user_id in the body is never read
	created, err := h.Repo.Create(r.Context(), subject.UserID, fields)
	if err != nil {
		internalError(w, r, "create expense failed", err)
		return
	}
	metrics.IncExpenseWrite("create")

	writeJSON(w, http.StatusCreated, resourceEnvelope{Data: NewExpenseResource(created)})
	h.notify(r, notify.KindExpenseCreated, created)
}

//
// ==========================
// Get Expense By ID
// ==========================
//

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	subject, ok := subjectFrom(w, r)
	if !ok {
		return
	}
	target, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if !h.authorize(w, subject, expense.View, target) {
		return
	}

	writeJSON(w, http.StatusOK, resourceEnvelope{Data: NewExpenseResource(target)})
}

//
// ==========================
// Update Expense
// ==========================
//

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	subject, ok := subjectFrom(w, r)
	if !ok {
		return
	}
	target, ok := h.resolve(w, r)
	if !ok {
		return
	}
	fields, ok := h.validate(w, r)
	if !ok {
		return
	}
	if !h.authorize(w, subject, expense.Update, target) {
		return
	}

	updated, err := h.Repo.Update(r.Context(), target, fields)
	if errors.Is(err, expense.ErrNotFound) {
		JSONError(w, errMessageNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(w, r, "update expense failed", err)
		return
	}
	metrics.IncExpenseWrite("update")

	writeJSON(w, http.StatusOK, resourceEnvelope{Data: NewExpenseResource(updated)})
	h.notify(r, notify.KindExpenseUpdated, updated)
}

//
// ==========================
// Delete Expense
// ==========================
//

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	subject, ok := subjectFrom(w, r)
	if !ok {
		return
	}
	target, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if !h.authorize(w, subject, expense.Delete, target) {
		return
	}

	err := h.Repo.Delete(r.Context(), target)
	if errors.Is(err, expense.ErrNotFound) {
		JSONError(w, errMessageNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(w, r, "delete expense failed", err)
		return
	}
	metrics.IncExpenseWrite("delete")

	w.WriteHeader(http.StatusNoContent)
	h.notify(r, notify.KindExpenseDeleted, target)
}

//
// ==========================
// Pipeline steps
// ==========================
//

// subjectFrom returns the authenticated subject or writes 401.
func subjectFrom(w http.ResponseWriter, r *http.Request) (*expense.Subject, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		JSONError(w, errMessageUnauthenticated, http.StatusUnauthorized)
		return nil, false
	}
	return &expense.Subject{UserID: userID}, true
}

// resolve loads the expense named by {id}. Unknown and non-numeric ids are 404.
func (h *ExpenseHandler) resolve(w http.ResponseWriter, r *http.Request) (*models.Expense, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		JSONError(w, errMessageNotFound, http.StatusNotFound)
		return nil, false
	}

	e, err := h.Repo.Find(r.Context(), id)
	if errors.Is(err, expense.ErrNotFound) {
		JSONError(w, errMessageNotFound, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		internalError(w, r, "find expense failed", err)
		return nil, false
	}
	return e, true
}

func (h *ExpenseHandler) validate(w http.ResponseWriter, r *http.Request) (expense.Fields, bool) {
	var payload expense.Payload
	if !decodeJSON(w, r, &payload) {
		return expense.Fields{}, false
	}

	fields, err := h.Validator.Validate(payload)
	if err != nil {
		var fieldErrs validation.FieldErrors
		if errors.As(err, &fieldErrs) {
			JSONValidationError(w, errMessageValidation, fieldErrs, http.StatusUnprocessableEntity)
			return expense.Fields{}, false
		}
		internalError(w, r, "validate expense failed", err)
		return expense.Fields{}, false
	}
	return fields, true
}

func (h *ExpenseHandler) authorize(w http.ResponseWriter, subject *expense.Subject, action expense.Action, target *models.Expense) bool {
	if expense.Authorize(subject, action, target).Allowed() {
		return true
	}
	metrics.IncAuthorizationDenial(action.String())
	JSONError(w, errMessageUnauthorized, http.StatusForbidden)
	return false
}

func (h *ExpenseHandler) notify(r *http.Request, kind notify.Kind, e *models.Expense) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	h.Notifier.Dispatch(r.Context(), notify.ForExpense(kind, e, now()))
}
