package core

// PaymentRow is a payment line of a printed report. All fields are display
// strings; the renderer prints them as given.
type PaymentRow struct {
	Date        string `json:"date"`
	FlatNumber  string `json:"flat_number"`
	OwnerName   string `json:"owner_name"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

// ExpenseRow is an expense line of a printed report.
type ExpenseRow struct {
	Date        string `json:"date"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

// TotalsDisplay is Summary formatted for printing.
type TotalsDisplay struct {
	Income  string `json:"total_income"`
	Expense string `json:"total_expense"`
	Net     string `json:"net"`
}

// ReportRows is everything a renderer needs for a monthly or yearly report.
// Totals come from the aggregator, never from summing the rows.
type ReportRows struct {
	Society       string        `json:"society"`
	Title         string        `json:"title"`
	PeriodLabel   string        `json:"period"`
	Year          int           `json:"year"`
	Month         int           `json:"month,omitempty"`
	GeneratedOn   string        `json:"generated_on"`
	Payments      []PaymentRow  `json:"payments"`
	Expenses      []ExpenseRow  `json:"expenses"`
	Totals        Summary       `json:"totals"`
	TotalsDisplay TotalsDisplay `json:"totals_display"`
}

// InvoiceData is a payment receipt ready to print.
type InvoiceData struct {
	Society       string `json:"society"`
	InvoiceNumber string `json:"invoice_number"`
	PaymentID     int64  `json:"payment_id"`
	Date          string `json:"date"`
	FlatNumber    string `json:"flat_number"`
	OwnerName     string `json:"owner_name"`
	PhoneNumber   string `json:"phone_number"`
	BillingPeriod string `json:"billing_period"`
	Mode          string `json:"payment_mode"`
	Amount        string `json:"amount"`
	Remarks       string `json:"remarks"`
}
