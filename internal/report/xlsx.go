package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"society/internal/core"
)

const (
	summarySheet  = "Summary"
	paymentsSheet = "Payments"
	expensesSheet = "Expenses"
)

// XLSXRenderer writes a report as a workbook with Summary, Payments and
// Expenses sheets.
type XLSXRenderer struct{}

func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{}
}

func (XLSXRenderer) RenderReport(w io.Writer, rows *core.ReportRows) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{paymentsSheet, expensesSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	summary := [][]any{
		{rows.Society},
		{rows.Title},
		{"Generated on", rows.GeneratedOn},
		{},
		{"Total Income", rows.TotalsDisplay.Income},
		{"Total Expense", rows.TotalsDisplay.Expense},
		{"Net Balance", rows.TotalsDisplay.Net},
	}
	payments := [][]any{{"Date", "Flat", "Owner", "Amount", "Description"}}
	for _, p := range rows.Payments {
		payments = append(payments, []any{p.Date, p.FlatNumber, p.OwnerName, p.Amount, p.Description})
	}
	expenses := [][]any{{"Date", "Category", "Amount", "Description"}}
	for _, e := range rows.Expenses {
		expenses = append(expenses, []any{e.Date, e.Category, e.Amount, e.Description})
	}

	for sheet, data := range map[string][][]any{
		summarySheet:  summary,
		paymentsSheet: payments,
		expensesSheet: expenses,
	} {
		if err := writeRows(f, sheet, data); err != nil {
			return err
		}
	}

	f.SetColWidth(summarySheet, "A", "A", 18)
	f.SetColWidth(summarySheet, "B", "B", 20)
	f.SetColWidth(paymentsSheet, "A", "B", 12)
	f.SetColWidth(paymentsSheet, "C", "C", 24)
	f.SetColWidth(paymentsSheet, "D", "D", 14)
	f.SetColWidth(paymentsSheet, "E", "E", 30)
	f.SetColWidth(expensesSheet, "A", "A", 12)
	f.SetColWidth(expensesSheet, "B", "B", 20)
	f.SetColWidth(expensesSheet, "C", "C", 14)
	f.SetColWidth(expensesSheet, "D", "D", 30)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
