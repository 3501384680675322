package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"society/internal/amqp"
	"society/internal/core"
	"society/internal/ledger"
	"society/internal/ledger/memory"
)

type fixture struct {
	store *memory.Store
	admin core.User
	flats map[string]core.Flat
}

// newFixture seeds an admin and flats A-1, A-2 and A-10 with 5000.00
// maintenance each.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	admin, err := s.CreateUser(ctx, core.User{Name: "System Admin", Email: "admin@society.test", Role: core.RoleAdmin, Status: "Active"})
	if err != nil {
		t.Fatal(err)
	}
	fx := &fixture{store: s, admin: admin, flats: map[string]core.Flat{}}
	for _, n := range []string{"A-10", "A-2", "A-1"} {
		f, err := s.CreateFlat(ctx, core.Flat{
			FlatNumber:        n,
			OwnerName:         "Owner " + n,
			MaintenanceAmount: core.Cents(500000),
			OwnershipType:     core.Owned,
		}.WithDefaults())
		if err != nil {
			t.Fatal(err)
		}
		fx.flats[n] = f
	}
	return fx
}

func (fx *fixture) pay(t *testing.T, flat string, cents int64, paid core.Date, billing core.Period) core.Payment {
	t.Helper()
	p, err := fx.store.CreatePayment(context.Background(), core.Payment{
		FlatID:       fx.flats[flat].ID,
		AmountPaid:   core.Cents(cents),
		Mode:         core.DefaultPaymentMode,
		PaymentDate:  paid,
		BillingMonth: billing.Month,
		BillingYear:  billing.Year,
	}, core.Actor{Source: core.ActorFallback})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func (fx *fixture) spend(t *testing.T, title string, cents int64, date core.Date) core.Expense {
	t.Helper()
	e, err := fx.store.CreateExpense(context.Background(), core.Expense{
		Title:  title,
		Amount: core.Cents(cents),
		Date:   date,
	}, core.Actor{Source: core.ActorFallback})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func fixedClock(year, month, day int) func() time.Time {
	return func() time.Time { return time.Date(year, time.Month(month), day, 10, 0, 0, 0, time.UTC) }
}

// failingStore fails the selected reads with a store error.
type failingStore struct {
	*memory.Store
	failPaid     bool
	failExpenses bool
}

var _ ledger.Store = (*failingStore)(nil)

func (f *failingStore) PaidByFlat(ctx context.Context, p core.Period) (map[int64]core.Money, error) {
	if f.failPaid {
		return nil, &core.StoreError{Op: "paid by flat", Err: context.DeadlineExceeded}
	}
	return f.Store.PaidByFlat(ctx, p)
}

func (f *failingStore) ExpenseTotalsByMonth(ctx context.Context, year int) (map[int]core.Money, error) {
	if f.failExpenses {
		return nil, &core.StoreError{Op: "expense totals", Err: context.DeadlineExceeded}
	}
	return f.Store.ExpenseTotalsByMonth(ctx, year)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.LedgerEventMessage
	err  error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, msg *amqp.LedgerEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) periods() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.Period().Key())
	}
	return out
}
