package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"society/internal/backend"
	"society/internal/core"
	"society/internal/ledger/memory"
	"society/internal/log"
	"society/internal/services"
)

type testEnv struct {
	srv    *Server
	svc    *backend.Services
	store  *memory.Store
	admin  string
	viewer string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	now := func() time.Time { return time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC) }

	store := memory.New()
	svc := backend.NewServices(&backend.BackendResult{Store: store}, backend.ServiceOptions{
		SocietyName:    "Green Park",
		CurrencyPrefix: "Rs.",
		JWTSecret:      "test-secret-0123456789",
		JWTTTL:         time.Hour,
		Now:            now,
	})

	admin, _, err := services.EnsureAdmin(ctx, store, "System Admin", "admin@society.in", "password123")
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	viewer, err := svc.Users.CreateUser(ctx, core.User{Name: "Viewer", Email: "viewer@society.in", Role: core.RoleViewer, Status: "Active"}, "viewerpass1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	adminToken, _, err := svc.Tokens.Issue(admin)
	if err != nil {
		t.Fatal(err)
	}
	viewerToken, _, err := svc.Tokens.Issue(viewer)
	if err != nil {
		t.Fatal(err)
	}

	srv := NewServer(":0", Deps{
		Services: svc,
		Store:    store,
		Logger:   log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)}),
		Now:      now,
	})
	t.Cleanup(func() { srv.rateLimiter.Stop() })

	return &testEnv{srv: srv, svc: svc, store: store, admin: adminToken, viewer: viewerToken}
}

func (e *testEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (e *testEnv) createFlat(t *testing.T, number string, maintenance string) core.Flat {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/flats", e.admin, map[string]any{
		"flat_number":        number,
		"owner_name":         "Owner " + number,
		"maintenance_amount": maintenance,
		"ownership_type":     "Owned",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create flat %s: status %d body %s", number, rec.Code, rec.Body)
	}
	return decode[core.Flat](t, rec)
}

func (e *testEnv) createPayment(t *testing.T, flatID int64, amount string, paid string, month, year int) core.Payment {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/payments", e.admin, map[string]any{
		"flat_id":   flatID,
		"amount":    amount,
		"paid_date": paid,
		"month":     month,
		"year":      year,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create payment: status %d body %s", rec.Code, rec.Body)
	}
	return decode[core.Payment](t, rec)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	rec = env.do(t, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d body %s", rec.Code, rec.Body)
	}
	body := decode[map[string]any](t, rec)
	checks := body["checks"].(map[string]any)
	if checks["pdf"] != "disabled" {
		t.Errorf("pdf check = %v, want disabled", checks["pdf"])
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("disk gone") }

func TestReadyReportsStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.srv.store = failingPinger{}

	rec := env.do(t, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", rec.Code)
	}
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid token", "Bearer " + env.admin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/flats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.srv.Handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized {
				body := decode[ErrorResponse](t, rec)
				if body.Code != log.ErrorTypeAuth || body.RequestID == "" {
					t.Errorf("error body = %+v", body)
				}
			}
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/login", "", map[string]string{"login": "admin@society.in", "password": "password123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body %s", rec.Code, rec.Body)
	}
	res := decode[services.LoginResult](t, rec)
	if res.Token == "" || res.User.Role != core.RoleAdmin {
		t.Errorf("login result = %+v", res)
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Error("login response leaks the password hash")
	}

	rec = env.do(t, http.MethodGet, "/api/users/me", res.Token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("me with issued token: status %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "admin@society.in", "password": "wrong-password"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/login", "", map[string]string{"password": "password123"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing login status = %d, want 400", rec.Code)
	}
}

func TestFlatValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/flats", env.admin, map[string]any{
		"flat_number":    "A-1",
		"owner_name":     "Asha",
		"ownership_type": "Leased",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decode[ErrorResponse](t, rec)
	if len(body.Details) != 1 || body.Details[0].Field != "ownership_type" {
		t.Errorf("details = %+v", body.Details)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/flats", strings.NewReader(`{"flat_number":`))
	req.Header.Set("Authorization", "Bearer "+env.admin)
	rec = httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/flats/abc", env.admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/flats/999", env.admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing flat status = %d, want 404", rec.Code)
	}
}

func TestViewerCannotWrite(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/flats", env.viewer, map[string]any{
		"flat_number": "A-1", "owner_name": "Asha", "ownership_type": "Owned",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer create status = %d, want 403", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/users", env.viewer, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer list users status = %d, want 403", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/flats", env.viewer, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("viewer read status = %d, want 200", rec.Code)
	}
}

func TestPaymentsAndPendingDues(t *testing.T) {
	env := newTestEnv(t)
	a1 := env.createFlat(t, "A-1", "5000")
	a2 := env.createFlat(t, "A-2", "5000.00")
	a10 := env.createFlat(t, "A-10", "5000")

	p := env.createPayment(t, a1.ID, "5000", "2024-03-05", 3, 2024)
	if p.Mode != core.DefaultPaymentMode || p.CreatedBy == nil {
		t.Errorf("payment defaults = %+v", p)
	}
	env.createPayment(t, a2.ID, "2000", "2024-03-09", 3, 2024)

	rec := env.do(t, http.MethodGet, "/api/dashboard/pending?year=2024&month=3", env.admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pending status = %d body %s", rec.Code, rec.Body)
	}
	pending := decode[PendingResponse](t, rec)
	if len(pending.Flats) != 2 || pending.Flats[0].FlatID != a2.ID || pending.Flats[1].FlatID != a10.ID {
		t.Fatalf("pending flats = %+v", pending.Flats)
	}
	if pending.TotalPending.Cents != 800000 {
		t.Errorf("total pending = %d, want 800000", pending.TotalPending.Cents)
	}

	rec = env.do(t, http.MethodGet, "/api/payments?search=A-1&limit=5", env.admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	page := decode[map[string]any](t, rec)
	if page["current_page"].(float64) != 1 || page["limit"].(float64) != 5 {
		t.Errorf("page = %v", page)
	}

	rec = env.do(t, http.MethodGet, "/api/payments?month=13", env.admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid month status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/payments", env.admin, map[string]any{
		"flat_id": a1.ID, "amount": "-5", "paid_date": "2024-03-05", "month": 3, "year": 2024,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative amount status = %d, want 400", rec.Code)
	}
}

func TestAnalyticsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	a1 := env.createFlat(t, "A-1", "5000")
	env.createPayment(t, a1.ID, "5000", "2024-02-05", 2, 2024)

	rec := env.do(t, http.MethodGet, "/api/dashboard/analytics?year=2024", env.admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analytics status = %d body %s", rec.Code, rec.Body)
	}
	a := decode[core.Analytics](t, rec)
	if len(a.Monthly) != 12 {
		t.Fatalf("monthly buckets = %d", len(a.Monthly))
	}
	if a.Monthly[1].TotalIncome.Cents != 500000 || a.Yearly.TotalIncome.Cents != 500000 {
		t.Errorf("income = %d / %d", a.Monthly[1].TotalIncome.Cents, a.Yearly.TotalIncome.Cents)
	}
	if len(a.PendingFlatsByMonth) != 3 {
		t.Errorf("pending months = %v", a.PendingFlatsByMonth)
	}
	if _, ok := a.PendingFlatsByMonth["2024-03"]; !ok {
		t.Error("current month missing from pending map")
	}

	rec = env.do(t, http.MethodGet, "/api/dashboard/analytics?year=0", env.admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("year 0 status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/reports/summary/2024/2", env.admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	if s := decode[core.Summary](t, rec); s.Net.Cents != 500000 {
		t.Errorf("summary = %+v", s)
	}
}

func TestDeleteGate(t *testing.T) {
	env := newTestEnv(t)
	a1 := env.createFlat(t, "A-1", "5000")
	p := env.createPayment(t, a1.ID, "5000", "2024-03-05", 3, 2024)
	target := "/api/payments/" + itoa(p.ID)

	rec := env.do(t, http.MethodDelete, target, env.admin, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("delete while disabled status = %d, want 403", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/config/delete-enabled", env.viewer, map[string]bool{"delete_enabled": true})
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer toggle status = %d, want 403", rec.Code)
	}
	rec = env.do(t, http.MethodPut, "/api/config/delete-enabled", env.admin, map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing flag status = %d, want 400", rec.Code)
	}
	rec = env.do(t, http.MethodPut, "/api/config/delete-enabled", env.admin, map[string]bool{"delete_enabled": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("enable status = %d body %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodDelete, target, env.admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d body %s", rec.Code, rec.Body)
	}
	rec = env.do(t, http.MethodGet, target, env.admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted payment status = %d, want 404", rec.Code)
	}
}

func TestMonthlyReportFormats(t *testing.T) {
	env := newTestEnv(t)
	a1 := env.createFlat(t, "A-1", "5000")
	env.createPayment(t, a1.ID, "5000", "2024-03-05", 3, 2024)

	tests := []struct {
		format      string
		status      int
		contentType string
		disposition string
	}{
		{"", http.StatusOK, "application/json", ""},
		{"html", http.StatusOK, "text/html", ""},
		{"xlsx", http.StatusOK, "spreadsheetml", "attachment; filename=\"report_2024_03.xlsx\""},
		{"pdf", http.StatusServiceUnavailable, "application/json", ""},
		{"csv", http.StatusBadRequest, "application/json", ""},
	}
	for _, tt := range tests {
		t.Run("format="+tt.format, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/reports/monthly?month=3&year=2024&format="+tt.format, env.admin, nil)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d body %s", rec.Code, tt.status, rec.Body)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, tt.contentType) {
				t.Errorf("content type = %q, want %q", ct, tt.contentType)
			}
			if tt.disposition != "" && rec.Header().Get("Content-Disposition") != tt.disposition {
				t.Errorf("disposition = %q", rec.Header().Get("Content-Disposition"))
			}
		})
	}

	rec := env.do(t, http.MethodGet, "/api/reports/monthly?month=3&year=2024", env.admin, nil)
	rows := decode[core.ReportRows](t, rec)
	if len(rows.Payments) != 1 || rows.TotalsDisplay.Income != "Rs. 5000.00" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestInvoice(t *testing.T) {
	env := newTestEnv(t)
	a1 := env.createFlat(t, "A-1", "5000")
	p := env.createPayment(t, a1.ID, "5000", "2024-03-05", 3, 2024)

	rec := env.do(t, http.MethodPost, "/api/payments/invoice", env.viewer, map[string]any{"payment_id": p.ID, "format": "html"})
	if rec.Code != http.StatusOK {
		t.Fatalf("invoice status = %d body %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "Society Maintenance Invoice") || !strings.Contains(rec.Body.String(), "A-1") {
		t.Error("invoice body missing payment details")
	}

	rec = env.do(t, http.MethodPost, "/api/payments/invoice", env.viewer, map[string]any{"payment_id": p.ID})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("pdf without printer status = %d, want 503", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/payments/invoice", env.viewer, map[string]any{"payment_id": 999, "format": "html"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown payment status = %d, want 404", rec.Code)
	}
}

func TestUserAdministration(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users", env.admin, map[string]any{
		"name": "Manager", "email": "manager@society.in", "password": "managerpass", "role": "manager",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user status = %d body %s", rec.Code, rec.Body)
	}
	manager := decode[core.User](t, rec)

	rec = env.do(t, http.MethodPost, "/api/users", env.admin, map[string]any{
		"name": "Bad", "email": "not-an-email", "password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid user status = %d", rec.Code)
	}
	if body := decode[ErrorResponse](t, rec); len(body.Details) != 2 {
		t.Errorf("details = %+v", body.Details)
	}

	rec = env.do(t, http.MethodPut, "/api/users/"+itoa(manager.ID), env.admin, map[string]any{"role": "viewer"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update user status = %d body %s", rec.Code, rec.Body)
	}
	if u := decode[core.User](t, rec); u.Role != core.RoleViewer || u.Email != "manager@society.in" {
		t.Errorf("updated user = %+v", u)
	}

	rec = env.do(t, http.MethodPost, "/api/login", "", map[string]string{"login": "manager@society.in", "password": "managerpass"})
	if rec.Code != http.StatusOK {
		t.Fatalf("manager login status = %d", rec.Code)
	}
	token := decode[services.LoginResult](t, rec).Token

	rec = env.do(t, http.MethodPut, "/api/users/me/password", token, map[string]string{"current_password": "wrongpass1", "new_password": "another-pass"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong current password status = %d, want 401", rec.Code)
	}
	rec = env.do(t, http.MethodPut, "/api/users/me/password", token, map[string]string{"current_password": "managerpass", "new_password": "another-pass"})
	if rec.Code != http.StatusOK {
		t.Errorf("change password status = %d body %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodDelete, "/api/users/"+itoa(manager.ID), env.admin, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete user status = %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/nothing-here", env.admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	env := newTestEnv(t)
	limited := false
	for range 61 {
		rec := env.do(t, http.MethodPost, "/api/login", "", map[string]string{"login": "nobody", "password": "x"})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if rec.Header().Get("Retry-After") != "60" {
				t.Error("missing Retry-After")
			}
			break
		}
	}
	if !limited {
		t.Error("61st write within a minute was not limited")
	}
	if rec := env.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("reads should not be limited, got %d", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
