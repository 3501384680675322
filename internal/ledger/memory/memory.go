// Package memory is an in-process Ledger Store used by tests and by the
// memory backend. It keeps the same ordering and filter semantics as the
// SQLite store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"society/internal/core"
	"society/internal/ledger"
)

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	nextID   int64
	flats    map[int64]core.Flat
	payments map[int64]core.Payment
	expenses map[int64]core.Expense
	users    map[int64]core.User
	config   map[string]string
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:      time.Now,
		flats:    map[int64]core.Flat{},
		payments: map[int64]core.Payment{},
		expenses: map[int64]core.Expense{},
		users:    map[int64]core.User{},
		config:   map[string]string{ledger.DeleteEnabledKey: "0"},
	}
}

// WithClock sets the clock used for audit timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// Aggregates

func (s *Store) SumPayments(_ context.Context, f ledger.PaymentFilter) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total core.Money
	for _, p := range s.payments {
		if matchPayment(p, f) {
			total = total.Add(p.AmountPaid)
		}
	}
	return total, nil
}

func (s *Store) SumExpenses(_ context.Context, f ledger.ExpenseFilter) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total core.Money
	for _, e := range s.expenses {
		if matchDate(e.Date, f.Year, f.Month) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (s *Store) PaymentTotalsByMonth(_ context.Context, year int) (map[int]core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[int]core.Money{}
	for _, p := range s.payments {
		if p.PaymentDate.Year() == year {
			m := p.PaymentDate.Month()
			out[m] = out[m].Add(p.AmountPaid)
		}
	}
	return out, nil
}

func (s *Store) ExpenseTotalsByMonth(_ context.Context, year int) (map[int]core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[int]core.Money{}
	for _, e := range s.expenses {
		if e.Date.Year() == year {
			m := e.Date.Month()
			out[m] = out[m].Add(e.Amount)
		}
	}
	return out, nil
}

func (s *Store) PaidByFlat(_ context.Context, period core.Period) (map[int64]core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[int64]core.Money{}
	for _, p := range s.payments {
		if p.BillingYear == period.Year && p.BillingMonth == period.Month {
			out[p.FlatID] = out[p.FlatID].Add(p.AmountPaid)
		}
	}
	return out, nil
}

func matchPayment(p core.Payment, f ledger.PaymentFilter) bool {
	if f.FlatID != 0 && p.FlatID != f.FlatID {
		return false
	}
	if f.BillingYear != 0 && p.BillingYear != f.BillingYear {
		return false
	}
	if f.BillingMonth != 0 && p.BillingMonth != f.BillingMonth {
		return false
	}
	return matchDate(p.PaymentDate, f.Year, f.Month)
}

func matchDate(d core.Date, year, month int) bool {
	if year != 0 && d.Year() != year {
		return false
	}
	if month != 0 && d.Month() != month {
		return false
	}
	return true
}

// Config

// GetConfig returns "" for unknown keys.
func (s *Store) GetConfig(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config[key], nil
}

func (s *Store) SetConfig(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config[key] = value
	return nil
}

// Flats

func (s *Store) ListFlats(_ context.Context, f ledger.FlatFilter) ([]core.Flat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Flat, 0, len(s.flats))
	for _, fl := range s.flats {
		if f.Status != "" && fl.Status != f.Status {
			continue
		}
		if f.OwnershipType != "" && fl.OwnershipType != f.OwnershipType {
			continue
		}
		out = append(out, fl)
	}
	core.SortFlats(out)
	return out, nil
}

func (s *Store) GetFlat(_ context.Context, id int64) (core.Flat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fl, ok := s.flats[id]
	if !ok {
		return core.Flat{}, core.NotFoundError("flat", id)
	}
	return fl, nil
}

func (s *Store) CreateFlat(_ context.Context, f core.Flat) (core.Flat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flatNumberTaken(f.FlatNumber, 0) {
		return core.Flat{}, fmt.Errorf("flat %s: %w", f.FlatNumber, core.ErrConflict)
	}
	f.ID = s.id()
	s.flats[f.ID] = f
	return f, nil
}

func (s *Store) UpdateFlat(_ context.Context, f core.Flat) (core.Flat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flats[f.ID]; !ok {
		return core.Flat{}, core.NotFoundError("flat", f.ID)
	}
	if s.flatNumberTaken(f.FlatNumber, f.ID) {
		return core.Flat{}, fmt.Errorf("flat %s: %w", f.FlatNumber, core.ErrConflict)
	}
	s.flats[f.ID] = f
	return f, nil
}

// DeleteFlat removes the flat and its payments.
func (s *Store) DeleteFlat(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flats[id]; !ok {
		return core.NotFoundError("flat", id)
	}
	delete(s.flats, id)
	for pid, p := range s.payments {
		if p.FlatID == id {
			delete(s.payments, pid)
		}
	}
	return nil
}

func (s *Store) flatNumberTaken(number string, except int64) bool {
	for id, fl := range s.flats {
		if id != except && strings.EqualFold(fl.FlatNumber, number) {
			return true
		}
	}
	return false
}

// Payments

func (s *Store) CreatePayment(_ context.Context, p core.Payment, actor core.Actor) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flats[p.FlatID]; !ok {
		return core.Payment{}, core.NotFoundError("flat", p.FlatID)
	}
	uid, err := s.resolveActor(actor)
	if err != nil {
		return core.Payment{}, err
	}
	now := s.now().UTC()
	p.ID = s.id()
	p.CreatedBy = &uid
	p.UpdatedBy = nil
	p.CreatedAt, p.UpdatedAt = now, now
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePayment(_ context.Context, p core.Payment, actor core.Actor) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.payments[p.ID]
	if !ok {
		return core.Payment{}, core.NotFoundError("payment", p.ID)
	}
	if _, ok := s.flats[p.FlatID]; !ok {
		return core.Payment{}, core.NotFoundError("flat", p.FlatID)
	}
	uid, err := s.resolveActor(actor)
	if err != nil {
		return core.Payment{}, err
	}
	p.CreatedBy, p.CreatedAt = old.CreatedBy, old.CreatedAt
	p.UpdatedBy = &uid
	p.UpdatedAt = s.now().UTC()
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) DeletePayment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return core.NotFoundError("payment", id)
	}
	delete(s.payments, id)
	return nil
}

func (s *Store) GetPayment(_ context.Context, id int64) (core.PaymentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return core.PaymentView{}, core.NotFoundError("payment", id)
	}
	return s.view(p), nil
}

func (s *Store) ListPayments(_ context.Context, q ledger.PaymentQuery) (ledger.PaymentPage, error) {
	q = q.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	search := foldASCII(q.Search)
	var all []core.PaymentView
	for _, p := range s.payments {
		if q.Month != 0 && p.BillingMonth != q.Month {
			continue
		}
		if q.Year != 0 && p.BillingYear != q.Year {
			continue
		}
		v := s.view(p)
		if search != "" &&
			!strings.Contains(foldASCII(v.FlatNumber), search) &&
			!strings.Contains(foldASCII(v.OwnerName), search) {
			continue
		}
		all = append(all, v)
	}
	sortPaymentsDesc(all)
	total := len(all)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return ledger.NewPaymentPage(all[start:end], total, q), nil
}

func (s *Store) ListPaymentsByFlat(_ context.Context, flatID int64) ([]core.PaymentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.PaymentView{}
	for _, p := range s.payments {
		if p.FlatID == flatID {
			out = append(out, s.view(p))
		}
	}
	sortPaymentsDesc(out)
	return out, nil
}

func (s *Store) ListPaymentsPaidIn(_ context.Context, year, month int) ([]core.PaymentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.PaymentView{}
	for _, p := range s.payments {
		if p.PaymentDate.Year() == year && matchDate(p.PaymentDate, year, month) {
			out = append(out, s.view(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate.Time) {
			return out[i].PaymentDate.Before(out[j].PaymentDate.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) MonthlyPaymentTotals(_ context.Context) ([]core.MonthTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byMonth := map[string]core.Money{}
	for _, p := range s.payments {
		k := p.PaymentDate.Period().Key()
		byMonth[k] = byMonth[k].Add(p.AmountPaid)
	}
	out := make([]core.MonthTotal, 0, len(byMonth))
	for k, v := range byMonth {
		out = append(out, core.MonthTotal{Month: k, Total: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out, nil
}

func (s *Store) view(p core.Payment) core.PaymentView {
	v := core.PaymentView{Payment: p}
	if fl, ok := s.flats[p.FlatID]; ok {
		v.FlatNumber, v.OwnerName = fl.FlatNumber, fl.OwnerName
	}
	if p.CreatedBy != nil {
		v.CreatedByName = s.users[*p.CreatedBy].Name
	}
	if p.UpdatedBy != nil {
		v.UpdatedByName = s.users[*p.UpdatedBy].Name
	}
	return v
}

// foldASCII lower-cases A-Z only, matching SQLite's LIKE.
func foldASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func sortPaymentsDesc(ps []core.PaymentView) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].PaymentDate.Equal(ps[j].PaymentDate.Time) {
			return ps[i].PaymentDate.After(ps[j].PaymentDate.Time)
		}
		return ps[i].ID > ps[j].ID
	})
}

// resolveActor must be called with s.mu held.
func (s *Store) resolveActor(a core.Actor) (int64, error) {
	if a.Source != core.ActorFallback {
		if _, ok := s.users[a.UserID]; !ok {
			return 0, core.NotFoundError("user", a.UserID)
		}
		return a.UserID, nil
	}
	var admin int64
	for id, u := range s.users {
		if u.Role == core.RoleAdmin && (admin == 0 || id < admin) {
			admin = id
		}
	}
	if admin == 0 {
		return 0, fmt.Errorf("system admin: %w", core.ErrNotFound)
	}
	return admin, nil
}

// Expenses

func (s *Store) CreateExpense(_ context.Context, e core.Expense, actor core.Actor) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, err := s.resolveActor(actor)
	if err != nil {
		return core.Expense{}, err
	}
	now := s.now().UTC()
	e.ID = s.id()
	e.CreatedBy = &uid
	e.UpdatedBy = nil
	e.CreatedAt, e.UpdatedAt = now, now
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense, actor core.Actor) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.expenses[e.ID]
	if !ok {
		return core.Expense{}, core.NotFoundError("expense", e.ID)
	}
	uid, err := s.resolveActor(actor)
	if err != nil {
		return core.Expense{}, err
	}
	e.CreatedBy, e.CreatedAt = old.CreatedBy, old.CreatedAt
	e.UpdatedBy = &uid
	e.UpdatedAt = s.now().UTC()
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return core.NotFoundError("expense", id)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.NotFoundError("expense", id)
	}
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context, f ledger.ExpenseFilter) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Expense{}
	for _, e := range s.expenses {
		if matchDate(e.Date, f.Year, f.Month) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ExpenseTrend(_ context.Context) ([]core.ExpenseTrendRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type key struct{ month, title string }
	totals := map[key]core.Money{}
	for _, e := range s.expenses {
		k := key{e.Date.Period().Key(), e.Title}
		totals[k] = totals[k].Add(e.Amount)
	}
	out := make([]core.ExpenseTrendRow, 0, len(totals))
	for k, v := range totals {
		out = append(out, core.ExpenseTrendRow{Month: k.month, Title: k.title, Total: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

// Users

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loginTaken(u, 0) {
		return core.User{}, fmt.Errorf("user %s: %w", u.Email, core.ErrConflict)
	}
	u.ID = s.id()
	if u.Status == "" {
		u.Status = "Active"
	}
	s.users[u.ID] = u
	return u, nil
}

// UpdateUser keeps the stored password hash.
func (s *Store) UpdateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.users[u.ID]
	if !ok {
		return core.User{}, core.NotFoundError("user", u.ID)
	}
	if s.loginTaken(u, u.ID) {
		return core.User{}, fmt.Errorf("user %s: %w", u.Email, core.ErrConflict)
	}
	u.PasswordHash = old.PasswordHash
	if u.Status == "" {
		u.Status = old.Status
	}
	s.users[u.ID] = u
	return u, nil
}

// DeleteUser removes the user and clears its audit references.
func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return core.NotFoundError("user", id)
	}
	delete(s.users, id)
	for pid, p := range s.payments {
		p.CreatedBy = clearRef(p.CreatedBy, id)
		p.UpdatedBy = clearRef(p.UpdatedBy, id)
		s.payments[pid] = p
	}
	for eid, e := range s.expenses {
		e.CreatedBy = clearRef(e.CreatedBy, id)
		e.UpdatedBy = clearRef(e.UpdatedBy, id)
		s.expenses[eid] = e
	}
	return nil
}

func clearRef(ref *int64, id int64) *int64 {
	if ref != nil && *ref == id {
		return nil
	}
	return ref
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.NotFoundError("user", id)
	}
	return u, nil
}

func (s *Store) FindUserByLogin(_ context.Context, login string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	login = strings.TrimSpace(login)
	var found *core.User
	for id, u := range s.users {
		if login != "" && (strings.EqualFold(u.Email, login) || u.Username == login || u.Mobile == login) {
			if found == nil || id < found.ID {
				u := u
				found = &u
			}
		}
	}
	if found == nil {
		return core.User{}, fmt.Errorf("user %q: %w", login, core.ErrNotFound)
	}
	return *found, nil
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) SetPasswordHash(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.NotFoundError("user", id)
	}
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

func (s *Store) UserActivity(_ context.Context, f ledger.UserActivityFilter) ([]core.UserActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.UserActivity{}
	for id, u := range s.users {
		if f.UserID != 0 && id != f.UserID {
			continue
		}
		a := core.UserActivity{UserID: id, Name: u.Name, Role: u.Role}
		for _, p := range s.payments {
			if p.CreatedBy == nil || *p.CreatedBy != id {
				continue
			}
			if f.Period != nil && (p.BillingYear != f.Period.Year || p.BillingMonth != f.Period.Month) {
				continue
			}
			a.TotalPayments = a.TotalPayments.Add(p.AmountPaid)
		}
		for _, e := range s.expenses {
			if e.CreatedBy == nil || *e.CreatedBy != id {
				continue
			}
			if f.Period != nil && !matchDate(e.Date, f.Period.Year, f.Period.Month) {
				continue
			}
			a.TotalExpenses = a.TotalExpenses.Add(e.Amount)
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// loginTaken must be called with s.mu held.
func (s *Store) loginTaken(u core.User, except int64) bool {
	for id, o := range s.users {
		if id == except {
			continue
		}
		if u.Email != "" && strings.EqualFold(o.Email, u.Email) {
			return true
		}
		if u.Username != "" && o.Username == u.Username {
			return true
		}
		if u.Mobile != "" && o.Mobile == u.Mobile {
			return true
		}
	}
	return false
}
