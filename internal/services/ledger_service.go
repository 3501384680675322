package services

import (
	"context"
	"fmt"
	"log/slog"

	"society/internal/amqp"
	"society/internal/core"
	"society/internal/ledger"
)

// EventPublisher announces ledger changes to the export worker.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// LedgerService orchestrates flat, payment and expense writes: validation,
// the delete permission gate, the store write and the change event.
type LedgerService struct {
	store     ledger.Store
	publisher EventPublisher
}

// NewLedgerService accepts a nil publisher; events are then skipped.
func NewLedgerService(store ledger.Store, publisher EventPublisher) *LedgerService {
	return &LedgerService{store: store, publisher: publisher}
}

// Flats

func (s *LedgerService) ListFlats(ctx context.Context, f ledger.FlatFilter) ([]core.Flat, error) {
	return s.store.ListFlats(ctx, f)
}

func (s *LedgerService) GetFlat(ctx context.Context, id int64) (core.Flat, error) {
	return s.store.GetFlat(ctx, id)
}

func (s *LedgerService) CreateFlat(ctx context.Context, f core.Flat) (core.Flat, error) {
	f = f.WithDefaults()
	if err := f.Validate(); err != nil {
		return core.Flat{}, err
	}
	created, err := s.store.CreateFlat(ctx, f)
	if err != nil {
		return core.Flat{}, fmt.Errorf("create flat: %w", err)
	}
	slog.InfoContext(ctx, "Flat created", "flat_id", created.ID, "flat_number", created.FlatNumber)
	return created, nil
}

func (s *LedgerService) UpdateFlat(ctx context.Context, f core.Flat) (core.Flat, error) {
	f = f.WithDefaults()
	if err := f.Validate(); err != nil {
		return core.Flat{}, err
	}
	updated, err := s.store.UpdateFlat(ctx, f)
	if err != nil {
		return core.Flat{}, fmt.Errorf("update flat: %w", err)
	}
	return updated, nil
}

func (s *LedgerService) DeleteFlat(ctx context.Context, id int64) error {
	if err := s.store.DeleteFlat(ctx, id); err != nil {
		return fmt.Errorf("delete flat: %w", err)
	}
	slog.InfoContext(ctx, "Flat deleted", "flat_id", id)
	return nil
}

// Payments

func (s *LedgerService) CreatePayment(ctx context.Context, p core.Payment, actor core.Actor) (core.Payment, error) {
	if p.Mode == "" {
		p.Mode = core.DefaultPaymentMode
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	created, err := s.store.CreatePayment(ctx, p, actor)
	if err != nil {
		return core.Payment{}, fmt.Errorf("save payment: %w", err)
	}

	slog.InfoContext(ctx, "Payment recorded",
		"payment_id", created.ID,
		"flat_id", created.FlatID,
		"amount_cents", created.AmountPaid.Cents,
		"billing_period", core.Period{Year: created.BillingYear, Month: created.BillingMonth}.Key(),
		"actor_source", actor.Source.String())

	s.publish(ctx, amqp.EntityPayment, amqp.ActionCreated, created.ID, created.PaymentDate.Period())
	return created, nil
}

func (s *LedgerService) UpdatePayment(ctx context.Context, p core.Payment, actor core.Actor) (core.Payment, error) {
	if p.Mode == "" {
		p.Mode = core.DefaultPaymentMode
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	old, err := s.store.GetPayment(ctx, p.ID)
	if err != nil {
		return core.Payment{}, err
	}
	updated, err := s.store.UpdatePayment(ctx, p, actor)
	if err != nil {
		return core.Payment{}, fmt.Errorf("update payment: %w", err)
	}

	s.publish(ctx, amqp.EntityPayment, amqp.ActionUpdated, updated.ID, updated.PaymentDate.Period())
	if prev := old.PaymentDate.Period(); prev != updated.PaymentDate.Period() {
		s.publish(ctx, amqp.EntityPayment, amqp.ActionUpdated, updated.ID, prev)
	}
	return updated, nil
}

// DeletePayment removes a payment when the delete permission flag is on.
func (s *LedgerService) DeletePayment(ctx context.Context, id int64) error {
	if err := s.requireDeleteEnabled(ctx); err != nil {
		return err
	}
	old, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePayment(ctx, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	slog.InfoContext(ctx, "Payment deleted", "payment_id", id)
	s.publish(ctx, amqp.EntityPayment, amqp.ActionDeleted, id, old.PaymentDate.Period())
	return nil
}

func (s *LedgerService) GetPayment(ctx context.Context, id int64) (core.PaymentView, error) {
	return s.store.GetPayment(ctx, id)
}

func (s *LedgerService) ListPayments(ctx context.Context, q ledger.PaymentQuery) (ledger.PaymentPage, error) {
	if q.Month != 0 && (q.Month < 1 || q.Month > 12) {
		return ledger.PaymentPage{}, core.NewValidationError("month", core.ErrInvalidMonth.Error())
	}
	return s.store.ListPayments(ctx, q)
}

func (s *LedgerService) ListPaymentsByFlat(ctx context.Context, flatID int64) ([]core.PaymentView, error) {
	if _, err := s.store.GetFlat(ctx, flatID); err != nil {
		return nil, err
	}
	return s.store.ListPaymentsByFlat(ctx, flatID)
}

func (s *LedgerService) MonthlyPaymentTotals(ctx context.Context) ([]core.MonthTotal, error) {
	return s.store.MonthlyPaymentTotals(ctx)
}

// Expenses

func (s *LedgerService) CreateExpense(ctx context.Context, e core.Expense, actor core.Actor) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	created, err := s.store.CreateExpense(ctx, e, actor)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense recorded",
		"expense_id", created.ID,
		"amount_cents", created.Amount.Cents,
		"date", created.Date.String(),
		"actor_source", actor.Source.String())

	s.publish(ctx, amqp.EntityExpense, amqp.ActionCreated, created.ID, created.Date.Period())
	return created, nil
}

func (s *LedgerService) UpdateExpense(ctx context.Context, e core.Expense, actor core.Actor) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	old, err := s.store.GetExpense(ctx, e.ID)
	if err != nil {
		return core.Expense{}, err
	}
	updated, err := s.store.UpdateExpense(ctx, e, actor)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.publish(ctx, amqp.EntityExpense, amqp.ActionUpdated, updated.ID, updated.Date.Period())
	if prev := old.Date.Period(); prev != updated.Date.Period() {
		s.publish(ctx, amqp.EntityExpense, amqp.ActionUpdated, updated.ID, prev)
	}
	return updated, nil
}

// DeleteExpense removes an expense when the delete permission flag is on.
func (s *LedgerService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.requireDeleteEnabled(ctx); err != nil {
		return err
	}
	old, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense deleted", "expense_id", id)
	s.publish(ctx, amqp.EntityExpense, amqp.ActionDeleted, id, old.Date.Period())
	return nil
}

func (s *LedgerService) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

func (s *LedgerService) ListExpenses(ctx context.Context, f ledger.ExpenseFilter) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx, f)
}

// MonthlyExpenseTotal sums expenses dated in month/year.
func (s *LedgerService) MonthlyExpenseTotal(ctx context.Context, year, month int) (core.Money, error) {
	if err := (core.Period{Year: year, Month: month}).Validate(); err != nil {
		return core.Money{}, err
	}
	return s.store.SumExpenses(ctx, ledger.ExpenseFilter{Year: year, Month: month})
}

// Delete permission flag

// DeleteEnabled reads the flag on every call so a change applies at once.
func (s *LedgerService) DeleteEnabled(ctx context.Context) (bool, error) {
	v, err := s.store.GetConfig(ctx, ledger.DeleteEnabledKey)
	if err != nil {
		return false, fmt.Errorf("read delete flag: %w", err)
	}
	return ledger.ParseFlag(v), nil
}

func (s *LedgerService) SetDeleteEnabled(ctx context.Context, enabled bool) error {
	if err := s.store.SetConfig(ctx, ledger.DeleteEnabledKey, ledger.FormatFlag(enabled)); err != nil {
		return fmt.Errorf("write delete flag: %w", err)
	}
	slog.InfoContext(ctx, "Delete permission changed", "enabled", enabled)
	return nil
}

func (s *LedgerService) requireDeleteEnabled(ctx context.Context) error {
	enabled, err := s.DeleteEnabled(ctx)
	if err != nil {
		return err
	}
	if !enabled {
		return core.ErrDeleteDisabled
	}
	return nil
}

// publish never fails the write: the record is already stored.
func (s *LedgerService) publish(ctx context.Context, entity, action string, id int64, p core.Period) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher, skipping ledger event", "entity", entity, "id", id)
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEventMessage(entity, action, id, p)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"entity", entity, "action", action, "id", id, "error", err)
	}
}

// Close closes the store.
func (s *LedgerService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close ledger store: %w", err)
	}
	return nil
}
