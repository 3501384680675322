// Package ledger declares the Ledger Store ports used by the dues and
// analytics engine and by the ledger write service.
//
// A zero value in a filter field means "not filtered".
package ledger

import (
	"context"
	"strings"

	"society/internal/core"
)

// DeleteEnabledKey is the config key of the delete permission flag.
const DeleteEnabledKey = "delete_enabled"

type (
	// PaymentFilter selects payments either by recorded date (Year, Month)
	// or by billing period (BillingYear, BillingMonth), or both.
	PaymentFilter struct {
		Year         int
		Month        int
		FlatID       int64
		BillingMonth int
		BillingYear  int
	}

	// ExpenseFilter selects expenses by expense date.
	ExpenseFilter struct {
		Year  int
		Month int
	}

	FlatFilter struct {
		Status        core.FlatStatus
		OwnershipType core.OwnershipType
	}

	// PaymentQuery drives the paginated payment list. Month and Year match
	// the billing period and combine with Search using AND.
	PaymentQuery struct {
		Search string
		Month  int
		Year   int
		Page   int
		Limit  int
	}

	PaymentPage struct {
		Items      []core.PaymentView `json:"data"`
		Total      int                `json:"total"`
		TotalPages int                `json:"total_pages"`
		Page       int                `json:"current_page"`
		Limit      int                `json:"limit"`
	}

	// UserActivityFilter narrows the user activity report. Period applies
	// only when both year and month are set: payments match on billing
	// period, expenses on expense date.
	UserActivityFilter struct {
		UserID int64
		Period *core.Period
	}
)

// Ports consumed by the dues and analytics engine.
type (
	AggregateReader interface {
		SumPayments(ctx context.Context, f PaymentFilter) (core.Money, error)
		SumExpenses(ctx context.Context, f ExpenseFilter) (core.Money, error)
		// PaymentTotalsByMonth returns payment totals of a year keyed by the
		// month (1-12) of the recorded payment date. Months without payments are absent.
		PaymentTotalsByMonth(ctx context.Context, year int) (map[int]core.Money, error)
		// ExpenseTotalsByMonth returns expense totals of a year keyed by month.
		ExpenseTotalsByMonth(ctx context.Context, year int) (map[int]core.Money, error)
	}

	FlatReader interface {
		ListFlats(ctx context.Context, f FlatFilter) ([]core.Flat, error)
		GetFlat(ctx context.Context, id int64) (core.Flat, error)
	}

	DuesReader interface {
		// PaidByFlat sums payments credited to a billing period per flat id.
		// Flats without payments are absent.
		PaidByFlat(ctx context.Context, period core.Period) (map[int64]core.Money, error)
	}

	ConfigStore interface {
		GetConfig(ctx context.Context, key string) (string, error)
		SetConfig(ctx context.Context, key, value string) error
	}
)

// Ports for ledger records.
type (
	FlatStore interface {
		FlatReader
		CreateFlat(ctx context.Context, f core.Flat) (core.Flat, error)
		UpdateFlat(ctx context.Context, f core.Flat) (core.Flat, error)
		DeleteFlat(ctx context.Context, id int64) error
	}

	// PaymentStore writes payments. A Fallback actor is resolved to the
	// system admin inside the same transaction as the write.
	PaymentStore interface {
		CreatePayment(ctx context.Context, p core.Payment, actor core.Actor) (core.Payment, error)
		UpdatePayment(ctx context.Context, p core.Payment, actor core.Actor) (core.Payment, error)
		DeletePayment(ctx context.Context, id int64) error
		GetPayment(ctx context.Context, id int64) (core.PaymentView, error)
		ListPayments(ctx context.Context, q PaymentQuery) (PaymentPage, error)
		ListPaymentsByFlat(ctx context.Context, flatID int64) ([]core.PaymentView, error)
		// ListPaymentsPaidIn lists payments recorded in a year, or in one
		// month of it when month is not zero, ordered by date then id.
		ListPaymentsPaidIn(ctx context.Context, year, month int) ([]core.PaymentView, error)
		MonthlyPaymentTotals(ctx context.Context) ([]core.MonthTotal, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense, actor core.Actor) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense, actor core.Actor) (core.Expense, error)
		DeleteExpense(ctx context.Context, id int64) error
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
		// ListExpenses returns expenses newest first.
		ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error)
		ExpenseTrend(ctx context.Context) ([]core.ExpenseTrendRow, error)
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		UpdateUser(ctx context.Context, u core.User) (core.User, error)
		DeleteUser(ctx context.Context, id int64) error
		GetUser(ctx context.Context, id int64) (core.User, error)
		// FindUserByLogin matches email, username or mobile.
		FindUserByLogin(ctx context.Context, login string) (core.User, error)
		ListUsers(ctx context.Context) ([]core.User, error)
		SetPasswordHash(ctx context.Context, id int64, hash string) error
		UserActivity(ctx context.Context, f UserActivityFilter) ([]core.UserActivity, error)
	}

	// Store is the full Ledger Store.
	Store interface {
		AggregateReader
		DuesReader
		ConfigStore
		FlatStore
		PaymentStore
		ExpenseStore
		UserStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// Normalize trims the search term and applies the list defaults: page 1,
// 10 rows per page.
func (q PaymentQuery) Normalize() PaymentQuery {
	q.Search = strings.TrimSpace(q.Search)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	return q
}

// Offset is the number of rows skipped before the current page.
func (q PaymentQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// NewPaymentPage fills the pagination fields.
func NewPaymentPage(items []core.PaymentView, total int, q PaymentQuery) PaymentPage {
	pages := 0
	if q.Limit > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}
	if items == nil {
		items = []core.PaymentView{}
	}
	return PaymentPage{Items: items, Total: total, TotalPages: pages, Page: q.Page, Limit: q.Limit}
}

// ParseFlag reads a stored boolean config value.
func ParseFlag(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	}
	return false
}

// FormatFlag renders a boolean for storage.
func FormatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
