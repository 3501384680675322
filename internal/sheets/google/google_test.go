package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"society/internal/core"
	ports "society/internal/sheets"
)

// fakeSheets records the calls the exporter makes against the Sheets REST API.
type fakeSheets struct {
	mu      sync.Mutex
	tabs    []string
	clears  []string
	updates map[string][][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && path == "/v4/spreadsheets/sheet-id":
		var ss gsheet.Spreadsheet
		for _, t := range f.tabs {
			ss.Sheets = append(ss.Sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: t}})
		}
		_ = json.NewEncoder(w).Encode(&ss)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.tabs = append(f.tabs, rq.AddSheet.Properties.Title)
			}
		}
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.clears = append(f.clears, strings.TrimSuffix(path[strings.Index(path, "/values/")+len("/values/"):], ":clear"))
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		f.updates[rng] = vr.Values
		_, _ = w.Write([]byte(`{}`))
	default:
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return New(svc, "sheet-id", "")
}

func monthRows() *core.ReportRows {
	return &core.ReportRows{
		Society:     "Green Park",
		Title:       "Monthly Financial Report - March 2024",
		Year:        2024,
		Month:       3,
		GeneratedOn: "31-03-2024",
		Payments: []core.PaymentRow{
			{Date: "05-03-2024", FlatNumber: "A-1", OwnerName: "Asha", Amount: "5000.00"},
		},
		Totals: core.NewSummary(core.Money{Cents: 500000}, core.Money{}),
	}
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExportMonth_CreatesTabAndWrites(t *testing.T) {
	fake := &fakeSheets{updates: map[string][][]any{}}
	c := newTestClient(t, fake)

	ref, err := c.ExportMonth(context.Background(), monthRows())
	if err != nil {
		t.Fatalf("ExportMonth: %v", err)
	}

	want := len(ports.Values(monthRows()))
	if !strings.HasPrefix(ref, "2024-03!A1:E") || !strings.HasSuffix(ref, "E"+strconv.Itoa(want)) {
		t.Errorf("ref = %q", ref)
	}
	if len(fake.tabs) != 1 || fake.tabs[0] != "2024-03" {
		t.Errorf("tabs = %v", fake.tabs)
	}
	if len(fake.clears) != 1 || fake.clears[0] != "2024-03!A:E" {
		t.Errorf("clears = %v", fake.clears)
	}
	values, ok := fake.updates["2024-03!A1"]
	if !ok || len(values) != want {
		t.Fatalf("updates = %v", fake.updates)
	}
	if values[0][0] != "Monthly Financial Report - March 2024" {
		t.Errorf("first cell = %v", values[0][0])
	}
}

func TestExportMonth_ReusesExistingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"2024-03"}, updates: map[string][][]any{}}
	c := newTestClient(t, fake)

	for range 2 {
		if _, err := c.ExportMonth(context.Background(), monthRows()); err != nil {
			t.Fatalf("ExportMonth: %v", err)
		}
	}
	if len(fake.tabs) != 1 {
		t.Errorf("tab created again: %v", fake.tabs)
	}
	if len(fake.clears) != 2 {
		t.Errorf("each export should clear the tab, clears = %v", fake.clears)
	}
}

func TestExportMonth_RejectsYearlyRows(t *testing.T) {
	c := &Client{spreadsheetID: "sheet-id"}
	rows := monthRows()
	rows.Month = 0
	if _, err := c.ExportMonth(context.Background(), rows); !errors.Is(err, ports.ErrNoMonth) {
		t.Errorf("err = %v, want ErrNoMonth", err)
	}
}

