package http

import (
	"net/http"
	"strings"

	"society/internal/core"
	"society/internal/ledger"
	"society/internal/services"
)

type ExpenseRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"omitempty,max=1000"`
	Amount      core.Money `json:"amount"`
	Date        core.Date  `json:"date"`
	PaidBy      string     `json:"paid_by" validate:"omitempty,max=100"`
	UserID      int64      `json:"user_id" validate:"omitempty,gt=0"`
}

func (req ExpenseRequest) expense(id int64) core.Expense {
	return core.Expense{
		ID:          id,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		Date:        req.Date,
		PaidBy:      strings.TrimSpace(req.PaidBy),
	}
}

type ExpenseTotalResponse struct {
	Year  int        `json:"year"`
	Month int        `json:"month"`
	Total core.Money `json:"total"`
}

// handleListExpenses lists expenses newest first, optionally narrowed to a
// year or a month of it.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	var filter ledger.ExpenseFilter
	var err error
	if filter.Year, err = queryInt(q, "year", 0); err != nil {
		return err
	}
	if filter.Month, err = queryInt(q, "month", 0); err != nil {
		return err
	}
	if filter.Month < 0 || filter.Month > 12 {
		return core.NewValidationError("month", core.ErrInvalidMonth.Error())
	}
	expenses, err := s.svc.Ledger.ListExpenses(r.Context(), filter)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, orEmpty(expenses))
	return nil
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	e, err := s.svc.Ledger.GetExpense(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, e)
	return nil
}

// handleMonthlyExpenseTotal defaults to the current month.
func (s *Server) handleMonthlyExpenseTotal(w http.ResponseWriter, r *http.Request) error {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		return err
	}
	total, err := s.svc.Ledger.MonthlyExpenseTotal(r.Context(), p.Year, p.Month)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, ExpenseTotalResponse{Year: p.Year, Month: p.Month, Total: total})
	return nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) error {
	var req ExpenseRequest
	if err := s.decodeJSON(r, &req); err != nil {
		return err
	}
	actor := services.ResolveActor(tokenUserID(r.Context()), req.UserID)
	e, err := s.svc.Ledger.CreateExpense(r.Context(), req.expense(0), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, e)
	return nil
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	var req ExpenseRequest
	if err := s.decodeJSON(r, &req); err != nil {
		return err
	}
	actor := services.ResolveActor(tokenUserID(r.Context()), req.UserID)
	e, err := s.svc.Ledger.UpdateExpense(r.Context(), req.expense(id), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, e)
	return nil
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if err := s.svc.Ledger.DeleteExpense(r.Context(), id); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Expense deleted successfully")
	return nil
}
