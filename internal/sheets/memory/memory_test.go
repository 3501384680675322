package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"society/internal/core"
	ports "society/internal/sheets"
)

func sampleRows() *core.ReportRows {
	return &core.ReportRows{
		Society: "Orion Pride Society",
		Title:   "Monthly Report - March 2024",
		Year:    2024,
		Month:   3,
		Payments: []core.PaymentRow{
			{Date: "05-03-2024", FlatNumber: "A-101", OwnerName: "Ravi", Amount: "Rs. 5000.00", Description: "-"},
		},
		Expenses: []core.ExpenseRow{
			{Date: "10-03-2024", Category: "Lift", Amount: "Rs. 1200.00", Description: "AMC"},
		},
		Totals: core.NewSummary(core.Money{Cents: 500000}, core.Money{Cents: 120000}),
	}
}

func TestExportMonthReplacesTab(t *testing.T) {
	e := New()
	ctx := context.Background()

	ref, err := e.ExportMonth(ctx, sampleRows())
	if err != nil {
		t.Fatal(err)
	}
	if ref != "mem:2024-03" {
		t.Fatalf("unexpected ref %q", ref)
	}
	first, _ := e.Tab("2024-03")

	if _, err := e.ExportMonth(ctx, sampleRows()); err != nil {
		t.Fatal(err)
	}
	second, ok := e.Tab("2024-03")
	if !ok {
		t.Fatal("expected tab 2024-03")
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("exporting the same month twice should leave the same content")
	}
	if e.Writes() != 2 {
		t.Fatalf("expected 2 writes, got %d", e.Writes())
	}
}

func TestExportMonthRejectsYearlyRows(t *testing.T) {
	rows := sampleRows()
	rows.Month = 0
	if _, err := New().ExportMonth(context.Background(), rows); !errors.Is(err, ports.ErrNoMonth) {
		t.Fatalf("expected ErrNoMonth, got %v", err)
	}
}
