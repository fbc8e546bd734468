package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, route, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, route, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ExpenseWritesTotal counts persisted expense mutations by action (create, update, delete).
	ExpenseWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expense_writes_total",
			Help: "Total number of persisted expense writes by action",
		},
		[]string{"action"},
	)

	// AuthorizationDenialsTotal counts requests the ownership gate refused, by action.
	AuthorizationDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expense_authorization_denials_total",
			Help: "Total number of expense requests denied by the ownership policy",
		},
		[]string{"action"},
	)

	// NotificationsTotal counts dispatched notifications by kind and outcome (sent, failed).
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of notifications by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, ExpenseWritesTotal, AuthorizationDenialsTotal, NotificationsTotal)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// E.g. /expenses/123 -> /expenses/{id}. Used when no route pattern is known.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request. path should be the
// matched route pattern when there is one; raw paths are normalized.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

func IncExpenseWrite(action string) {
	ExpenseWritesTotal.WithLabelValues(action).Inc()
}

func IncAuthorizationDenial(action string) {
	AuthorizationDenialsTotal.WithLabelValues(action).Inc()
}

// IncNotification increments the notification counter; outcome is "sent" or "failed".
func IncNotification(kind, outcome string) {
	NotificationsTotal.WithLabelValues(kind, outcome).Inc()
}
