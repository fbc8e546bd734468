package expense

import "github.com/andeen171/onfly-api/internal/models"

// Action is an operation a subject asks to perform on expenses.
type Action int

const (
	ViewAny Action = iota + 1
	Create
	View
	Update
	Delete
)

func (a Action) String() string {
	switch a {
	case ViewAny:
		return "viewAny"
	case Create:
		return "create"
	case View:
		return "view"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Authorize.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) Allowed() bool { return d == Allow }

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Authorize decides whether subject may perform action on target.
//
// A nil subject is always denied. ViewAny and Create need no target. View, Update and
// Delete are allowed only for the target's owner. The caller resolves the target first:
// a missing row is a not-found condition and never reaches this function.
func Authorize(subject *Subject, action Action, target *models.Expense) Decision {
	if subject == nil {
		return Deny
	}

	switch action {
	case ViewAny, Create:
		return Allow
	case View, Update, Delete:
		if target != nil && target.UserID == subject.UserID {
			return Allow
		}
		return Deny
	default:
		return Deny
	}
}
