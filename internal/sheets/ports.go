// Package sheets exports monthly report rows to a spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"society/internal/core"
)

// ErrNoMonth is returned when a yearly report is passed to a monthly export.
var ErrNoMonth = errors.New("report rows carry no month")

// Ports for outbound adapters.
type (
	// ReportExporter replaces the tab of one month with the report rows.
	// Exporting the same month twice leaves the same tab content.
	ReportExporter interface {
		ExportMonth(ctx context.Context, rows *core.ReportRows) (ref string, err error)
	}
)

// TabName returns the tab title of a month, "YYYY-MM" with an optional prefix.
func TabName(prefix string, year, month int) string {
	key := core.Period{Year: year, Month: month}.Key()
	if prefix == "" {
		return key
	}
	return fmt.Sprintf("%s %s", prefix, key)
}

// Values lays the report out as a cell matrix: a header block, the payments,
// the expenses and the totals. Totals are plain decimals so the sheet can
// compute with them.
func Values(rows *core.ReportRows) [][]any {
	out := [][]any{
		{rows.Title},
		{rows.Society},
		{"Generated on", rows.GeneratedOn},
		{},
		{"Payments"},
		{"Date", "Flat", "Owner", "Amount", "Description"},
	}
	for _, p := range rows.Payments {
		out = append(out, []any{p.Date, p.FlatNumber, p.OwnerName, p.Amount, p.Description})
	}
	out = append(out,
		[]any{},
		[]any{"Expenses"},
		[]any{"Date", "Category", "Amount", "Description"},
	)
	for _, e := range rows.Expenses {
		out = append(out, []any{e.Date, e.Category, e.Amount, e.Description})
	}
	out = append(out,
		[]any{},
		[]any{"Total income", rows.Totals.TotalIncome.String()},
		[]any{"Total expense", rows.Totals.TotalExpense.String()},
		[]any{"Net", rows.Totals.Net.String()},
	)
	return out
}
