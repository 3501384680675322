package core

// PeriodBucket is one month's aggregated income, expense and net.
type PeriodBucket struct {
	Year         int   `json:"year"`
	Month        int   `json:"month"` // 1-12
	TotalIncome  Money `json:"total_income"`
	TotalExpense Money `json:"total_expense"`
	Net          Money `json:"net"`
}

// NewPeriodBucket computes Net from income and expense.
func NewPeriodBucket(p Period, income, expense Money) PeriodBucket {
	return PeriodBucket{
		Year:         p.Year,
		Month:        p.Month,
		TotalIncome:  income,
		TotalExpense: expense,
		Net:          income.Sub(expense),
	}
}

// Summary is an income/expense/net roll-up for a month or a whole year.
type Summary struct {
	TotalIncome  Money `json:"total_income"`
	TotalExpense Money `json:"total_expense"`
	Net          Money `json:"net"`
}

func NewSummary(income, expense Money) Summary {
	return Summary{TotalIncome: income, TotalExpense: expense, Net: income.Sub(expense)}
}

// PendingEntry is a flat whose payments for a billing period fall short of
// its maintenance amount.
type PendingEntry struct {
	FlatID            int64  `json:"flat_id"`
	FlatNumber        string `json:"flat_number"`
	OwnerName         string `json:"owner_name"`
	Year              int    `json:"year"`
	Month             int    `json:"month"`
	MaintenanceAmount Money  `json:"maintenance_amount"`
	Paid              Money  `json:"paid"`
	PendingAmount     Money  `json:"pending_amount"`
}

// Analytics bundles the dashboard sections computed for one year.
type Analytics struct {
	Year                int                       `json:"year"`
	Monthly             []PeriodBucket            `json:"monthly"`
	PendingFlatsByMonth map[string][]PendingEntry `json:"pendingFlatsByMonth"`
	Yearly              Summary                   `json:"yearly"`
}

// DashboardSummary is the current month at a glance.
type DashboardSummary struct {
	Period Period  `json:"period"`
	Totals Summary `json:"totals"`
	Flats  []Flat  `json:"flats"`
}

// MonthTotal is an amount keyed by "YYYY-MM".
type MonthTotal struct {
	Month string `json:"month"`
	Total Money  `json:"total"`
}

// ExpenseTrendRow is the expense total of one title in one month.
type ExpenseTrendRow struct {
	Month string `json:"month"`
	Title string `json:"title"`
	Total Money  `json:"total"`
}

// OwnershipCount is the number of flats of one ownership type.
type OwnershipCount struct {
	OwnershipType OwnershipType `json:"ownership_type"`
	Count         int           `json:"count"`
}

// FlatReport summarises occupancy and the current month's collection.
type FlatReport struct {
	Period       Period           `json:"period"`
	Ownership    []OwnershipCount `json:"ownership"`
	PaidProperly int              `json:"paid_properly"`
	TotalFlats   int              `json:"total_flats"`
}

// UserActivity is how much a user has recorded as payments and expenses.
type UserActivity struct {
	UserID        int64  `json:"user_id"`
	Name          string `json:"name"`
	Role          Role   `json:"role"`
	TotalPayments Money  `json:"total_payments"`
	TotalExpenses Money  `json:"total_expenses"`
}

// ActorSource tells where the acting user id of a write came from.
type ActorSource int

const (
	ActorFromToken ActorSource = iota + 1
	ActorFromBody
	ActorFallback
)

func (s ActorSource) String() string {
	switch s {
	case ActorFromToken:
		return "token"
	case ActorFromBody:
		return "body"
	case ActorFallback:
		return "fallback"
	}
	return "unknown"
}

// Actor is the user a write is attributed to. A Fallback actor carries no id:
// the store resolves the seeded system admin in the same transaction as the write.
type Actor struct {
	UserID int64
	Source ActorSource
}
