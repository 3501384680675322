package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"society/internal/core"
	"society/internal/ledger"
)

// ReportStore is the slice of the ledger the report builder reads.
type ReportStore interface {
	ledger.FlatReader
	ledger.DuesReader
	ListPaymentsPaidIn(ctx context.Context, year, month int) ([]core.PaymentView, error)
	GetPayment(ctx context.Context, id int64) (core.PaymentView, error)
	ListExpenses(ctx context.Context, f ledger.ExpenseFilter) ([]core.Expense, error)
	ExpenseTrend(ctx context.Context) ([]core.ExpenseTrendRow, error)
	UserActivity(ctx context.Context, f ledger.UserActivityFilter) ([]core.UserActivity, error)
}

// ReportOptions control the printed labels.
type ReportOptions struct {
	SocietyName    string
	CurrencyPrefix string
}

// ReportBuilder turns ledger data into renderer input. Totals always come
// from the PeriodAggregator so printed and on-screen figures agree.
type ReportBuilder struct {
	store ReportStore
	agg   *PeriodAggregator
	opts  ReportOptions
	now   func() time.Time
}

func NewReportBuilder(store ReportStore, agg *PeriodAggregator, opts ReportOptions, now func() time.Time) *ReportBuilder {
	if now == nil {
		now = time.Now
	}
	return &ReportBuilder{store: store, agg: agg, opts: opts, now: now}
}

// MonthlyRows builds the report of payments and expenses dated in month/year.
func (b *ReportBuilder) MonthlyRows(ctx context.Context, month, year int) (*core.ReportRows, error) {
	p := core.Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	label := p.Start().Format("January 2006")
	return b.rows(ctx, year, month, "Monthly Report - "+label, label)
}

// YearlyRows builds the report of payments and expenses dated in year.
func (b *ReportBuilder) YearlyRows(ctx context.Context, year int) (*core.ReportRows, error) {
	if err := core.ValidateYear(year); err != nil {
		return nil, err
	}
	label := fmt.Sprintf("%d", year)
	return b.rows(ctx, year, 0, "Yearly Report - "+label, label)
}

func (b *ReportBuilder) rows(ctx context.Context, year, month int, title, label string) (*core.ReportRows, error) {
	var (
		payments []core.PaymentView
		expenses []core.Expense
		totals   core.Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		payments, err = b.store.ListPaymentsPaidIn(gctx, year, month)
		if err != nil {
			return fmt.Errorf("list payments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = b.store.ListExpenses(gctx, ledger.ExpenseFilter{Year: year, Month: month})
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		totals, err = b.agg.Summary(gctx, year, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &core.ReportRows{
		Society:     b.opts.SocietyName,
		Title:       title,
		PeriodLabel: label,
		Year:        year,
		Month:       month,
		GeneratedOn: b.now().Format("02-01-2006"),
		Payments:    make([]core.PaymentRow, 0, len(payments)),
		Expenses:    make([]core.ExpenseRow, 0, len(expenses)),
		Totals:      totals,
		TotalsDisplay: core.TotalsDisplay{
			Income:  b.money(totals.TotalIncome),
			Expense: b.money(totals.TotalExpense),
			Net:     b.money(totals.Net),
		},
	}
	for _, p := range payments {
		out.Payments = append(out.Payments, core.PaymentRow{
			Date:        p.PaymentDate.Display(),
			FlatNumber:  p.FlatNumber,
			OwnerName:   p.OwnerName,
			Amount:      b.money(p.AmountPaid),
			Description: orDash(p.Remarks),
		})
	}
	// the store lists expenses newest first; reports read oldest first
	for i := len(expenses) - 1; i >= 0; i-- {
		e := expenses[i]
		out.Expenses = append(out.Expenses, core.ExpenseRow{
			Date:        e.Date.Display(),
			Category:    e.Title,
			Amount:      b.money(e.Amount),
			Description: orDash(e.Description),
		})
	}
	return out, nil
}

// Invoice builds the receipt of one payment.
func (b *ReportBuilder) Invoice(ctx context.Context, paymentID int64) (*core.InvoiceData, error) {
	if paymentID <= 0 {
		return nil, core.NewValidationError("payment_id", "required")
	}
	p, err := b.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	flat, err := b.store.GetFlat(ctx, p.FlatID)
	if err != nil {
		return nil, err
	}
	return &core.InvoiceData{
		Society:       b.opts.SocietyName,
		InvoiceNumber: fmt.Sprintf("INV-%06d", p.ID),
		PaymentID:     p.ID,
		Date:          p.PaymentDate.Display(),
		FlatNumber:    flat.FlatNumber,
		OwnerName:     flat.OwnerName,
		PhoneNumber:   orValue(flat.PhoneNumber, "N/A"),
		BillingPeriod: fmt.Sprintf("%d/%d", p.BillingMonth, p.BillingYear),
		Mode:          p.Mode,
		Amount:        b.money(p.AmountPaid),
		Remarks:       orDash(p.Remarks),
	}, nil
}

// FlatReport counts flats by ownership and how many have paid the current
// billing month in full.
func (b *ReportBuilder) FlatReport(ctx context.Context) (*core.FlatReport, error) {
	period := core.PeriodOf(b.now())
	flats, err := b.store.ListFlats(ctx, ledger.FlatFilter{})
	if err != nil {
		return nil, fmt.Errorf("list flats: %w", err)
	}
	paid, err := b.store.PaidByFlat(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("payments for %s: %w", period.Key(), err)
	}

	counts := map[core.OwnershipType]int{}
	out := &core.FlatReport{Period: period, TotalFlats: len(flats), Ownership: []core.OwnershipCount{}}
	for _, f := range flats {
		counts[f.OwnershipType]++
		if paid[f.ID].Cents >= f.MaintenanceAmount.Cents {
			out.PaidProperly++
		}
	}
	for _, t := range []core.OwnershipType{core.Owned, core.Rented, core.Vacant} {
		if counts[t] > 0 {
			out.Ownership = append(out.Ownership, core.OwnershipCount{OwnershipType: t, Count: counts[t]})
		}
	}
	return out, nil
}

func (b *ReportBuilder) ExpenseTrend(ctx context.Context) ([]core.ExpenseTrendRow, error) {
	rows, err := b.store.ExpenseTrend(ctx)
	if err != nil {
		return nil, fmt.Errorf("expense trend: %w", err)
	}
	return rows, nil
}

// UserActivity reports what each user recorded. The period filter applies
// only when both year and month are given.
func (b *ReportBuilder) UserActivity(ctx context.Context, userID int64, year, month int) ([]core.UserActivity, error) {
	f := ledger.UserActivityFilter{UserID: userID}
	if year != 0 && month != 0 {
		p := core.Period{Year: year, Month: month}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		f.Period = &p
	}
	rows, err := b.store.UserActivity(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("user activity: %w", err)
	}
	return rows, nil
}

func (b *ReportBuilder) money(m core.Money) string {
	return m.Display(b.opts.CurrencyPrefix)
}

func orDash(s string) string {
	return orValue(s, "-")
}

func orValue(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
