// Package notify delivers domain events (registrations, expense writes) to an
// external sink without ever holding up or failing the request that caused them.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/andeen171/onfly-api/internal/logging"
	"github.com/andeen171/onfly-api/internal/metrics"
	"github.com/andeen171/onfly-api/internal/models"
)

type Kind string

const (
	KindUserRegistered Kind = "user.registered"
	KindExpenseCreated Kind = "expense.created"
	KindExpenseUpdated Kind = "expense.updated"
	KindExpenseDeleted Kind = "expense.deleted"
)

// DefaultTimeout bounds a single delivery when the dispatcher is given none.
const DefaultTimeout = 5 * time.Second

// Notification is the message body every notifier receives.
type Notification struct {
	Kind        Kind      `json:"kind"`
	UserID      int       `json:"user_id"`
	ExpenseID   int       `json:"expense_id,omitempty"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date,omitempty"`
	Value       string    `json:"value,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ForExpense builds the notification for a write on e.
func ForExpense(kind Kind, e *models.Expense, at time.Time) Notification {
	return Notification{
		Kind:        kind,
		UserID:      e.UserID,
		ExpenseID:   e.ID,
		Description: e.Description,
		Date:        e.Date.Format("2006-01-02"),
		Value:       e.Value.StringFixed(2),
		OccurredAt:  at.UTC(),
	}
}

func ForUser(kind Kind, u *models.User, at time.Time) Notification {
	return Notification{Kind: kind, UserID: u.ID, OccurredAt: at.UTC()}
}

// Notifier delivers a single notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Dispatcher runs notifiers in the background. A nil *Dispatcher drops everything.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(n Notifier, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		notifier: n,
		timeout:  timeout,
		logger:   logging.Component(logger, "notify"),
	}
}

// Dispatch sends n asynchronously. ctx only contributes values; its cancellation
// does not stop the delivery. Errors and panics are logged and counted.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) {
	if d == nil || d.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				d.logger.Error("notification panicked", "kind", n.Kind, "user_id", n.UserID, "panic", rec)
				metrics.IncNotification(string(n.Kind), "failed")
			}
		}()

		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if err := d.notifier.Notify(ctx, n); err != nil {
			d.logger.Warn("notification failed",
				"kind", n.Kind,
				"user_id", n.UserID,
				"expense_id", n.ExpenseID,
				"error", err)
			metrics.IncNotification(string(n.Kind), "failed")
			return
		}
		metrics.IncNotification(string(n.Kind), "sent")
	}()
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	if d == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogNotifier writes notifications to a structured log. It is the default sink.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification",
		"kind", n.Kind,
		"user_id", n.UserID,
		"expense_id", n.ExpenseID,
		"value", n.Value,
		"date", n.Date)
	return nil
}

// Open builds the notifier named by driver ("log" or "amqp"). The returned closer
// releases transport resources and is never nil.
func Open(driver, amqpURL, exchange string, logger *slog.Logger) (Notifier, io.Closer, error) {
	switch driver {
	case "", "log":
		return LogNotifier{Logger: logging.Component(logger, "notify")}, nopCloser{}, nil
	case "amqp":
		p, err := DialAMQP(amqpURL, exchange)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify driver %q", driver)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
