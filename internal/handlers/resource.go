package handlers

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/andeen171/onfly-api/internal/expense"
	"github.com/andeen171/onfly-api/internal/models"
)

// TimestampLayout renders created_at/updated_at in UTC.
const TimestampLayout = "2006-01-02T15:04:05Z"

const (
	defaultPerPage = 10
	maxPerPage     = 100
	// maxPage keeps (page-1)*limit within an int.
	maxPage = math.MaxInt / maxPerPage
)

// ExpenseResource is the wire shape of an expense.
type ExpenseResource struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Value       string `json:"value"`
	UserID      int    `json:"user_id"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func NewExpenseResource(e *models.Expense) ExpenseResource {
	return ExpenseResource{
		ID:          e.ID,
		Description: e.Description,
		Date:        e.Date.Format(expense.DateLayout),
		Value:       e.Value.StringFixed(2),
		UserID:      e.UserID,
		CreatedAt:   e.CreatedAt.UTC().Format(TimestampLayout),
		UpdatedAt:   e.UpdatedAt.UTC().Format(TimestampLayout),
	}
}

type resourceEnvelope struct {
	Data ExpenseResource `json:"data"`
}

// ==========================
// Pagination
// ==========================

type pageLinks struct {
	First string  `json:"first"`
	Last  string  `json:"last"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
}

type pageMeta struct {
	CurrentPage int    `json:"current_page"`
	From        *int   `json:"from"`
	LastPage    int    `json:"last_page"`
	Path        string `json:"path"`
	PerPage     int    `json:"per_page"`
	To          *int   `json:"to"`
	Total       int    `json:"total"`
}

type expensePage struct {
	Data  []ExpenseResource `json:"data"`
	Links pageLinks         `json:"links"`
	Meta  pageMeta          `json:"meta"`
}

type pageRequest struct {
	Page  int
	Limit int
}

func (p pageRequest) Offset() int { return (p.Page - 1) * p.Limit }

// parsePageRequest reads ?limit= and ?page=. Missing or invalid values fall back
// to the defaults; limit is capped at maxPerPage and page at maxPage.
func parsePageRequest(q url.Values) pageRequest {
	p := pageRequest{Page: 1, Limit: defaultPerPage}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		p.Limit = min(v, maxPerPage)
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = min(v, maxPage)
	}
	return p
}

func newExpensePage(r *http.Request, req pageRequest, list []models.Expense, total int) expensePage {
	data := make([]ExpenseResource, 0, len(list))
	for i := range list {
		data = append(data, NewExpenseResource(&list[i]))
	}

	lastPage := max(1, (total+req.Limit-1)/req.Limit)
	path := requestPath(r)
	pageURL := func(n int) string {
		return fmt.Sprintf("%s?limit=%d&page=%d", path, req.Limit, n)
	}

	page := expensePage{
		Data: data,
		Links: pageLinks{
			First: pageURL(1),
			Last:  pageURL(lastPage),
		},
		Meta: pageMeta{
			CurrentPage: req.Page,
			LastPage:    lastPage,
			Path:        path,
			PerPage:     req.Limit,
			Total:       total,
		},
	}
	if req.Page > 1 {
		prev := pageURL(min(req.Page-1, lastPage))
		page.Links.Prev = &prev
	}
	if req.Page < lastPage {
		next := pageURL(req.Page + 1)
		page.Links.Next = &next
	}
	if len(data) > 0 {
		from := req.Offset() + 1
		to := req.Offset() + len(data)
		page.Meta.From, page.Meta.To = &from, &to
	}
	return page
}

func requestPath(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.Path
}
