package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"society/internal/core"
	"society/internal/ledger"
	"society/internal/log"
	"society/internal/report"
	"society/internal/services"
)

// PaymentRequest creates or updates a payment. Month and Year are the
// billing period; UserID is used only when the token carries no user.
type PaymentRequest struct {
	FlatID      int64      `json:"flat_id" validate:"required,gt=0"`
	Amount      core.Money `json:"amount"`
	PaymentMode string     `json:"payment_mode" validate:"omitempty,max=30"`
	PaidDate    core.Date  `json:"paid_date"`
	Month       int        `json:"month" validate:"required,min=1,max=12"`
	Year        int        `json:"year" validate:"required,gte=1"`
	Remarks     string     `json:"remarks" validate:"omitempty,max=500"`
	UserID      int64      `json:"user_id" validate:"omitempty,gt=0"`
}

func (req PaymentRequest) payment(id int64) core.Payment {
	return core.Payment{
		ID:           id,
		FlatID:       req.FlatID,
		AmountPaid:   req.Amount,
		Mode:         strings.TrimSpace(req.PaymentMode),
		PaymentDate:  req.PaidDate,
		BillingMonth: req.Month,
		BillingYear:  req.Year,
		Remarks:      strings.TrimSpace(req.Remarks),
	}
}

type InvoiceRequest struct {
	PaymentID int64  `json:"payment_id" validate:"required,gt=0"`
	Format    string `json:"format" validate:"omitempty,oneof=pdf html"`
}

// handleListPayments serves the paginated list. search, month and year
// combine with AND.
func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	query := ledger.PaymentQuery{Search: strings.TrimSpace(q.Get("search"))}
	var err error
	if query.Month, err = queryInt(q, "month", 0); err != nil {
		return err
	}
	if query.Year, err = queryInt(q, "year", 0); err != nil {
		return err
	}
	if query.Page, err = queryInt(q, "page", 1); err != nil {
		return err
	}
	if query.Limit, err = queryInt(q, "limit", 10); err != nil {
		return err
	}
	page, err := s.svc.Ledger.ListPayments(r.Context(), query.Normalize())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, page)
	return nil
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	p, err := s.svc.Ledger.GetPayment(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, p)
	return nil
}

func (s *Server) handleListPaymentsByFlat(w http.ResponseWriter, r *http.Request) error {
	flatID, err := pathID(r, "flatID")
	if err != nil {
		return err
	}
	payments, err := s.svc.Ledger.ListPaymentsByFlat(r.Context(), flatID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, orEmpty(payments))
	return nil
}

func (s *Server) handleMonthlyPaymentTotals(w http.ResponseWriter, r *http.Request) error {
	totals, err := s.svc.Ledger.MonthlyPaymentTotals(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, orEmpty(totals))
	return nil
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) error {
	var req PaymentRequest
	if err := s.decodeJSON(r, &req); err != nil {
		return err
	}
	actor := services.ResolveActor(tokenUserID(r.Context()), req.UserID)
	p, err := s.svc.Ledger.CreatePayment(r.Context(), req.payment(0), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, p)
	return nil
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	var req PaymentRequest
	if err := s.decodeJSON(r, &req); err != nil {
		return err
	}
	actor := services.ResolveActor(tokenUserID(r.Context()), req.UserID)
	p, err := s.svc.Ledger.UpdatePayment(r.Context(), req.payment(id), actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, p)
	return nil
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if err := s.svc.Ledger.DeletePayment(r.Context(), id); err != nil {
		return err
	}
	writeMessage(w, http.StatusOK, "Payment deleted successfully")
	return nil
}

// handleInvoice renders a payment invoice, as PDF unless html is requested.
func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) error {
	var req InvoiceRequest
	if err := s.decodeJSON(r, &req); err != nil {
		return err
	}
	ctx := r.Context()
	inv, err := s.svc.Reports.Invoice(ctx, req.PaymentID)
	if err != nil {
		return err
	}

	logger := log.FromContext(ctx).WithComponent(log.ComponentReport)
	if req.Format == string(report.FormatHTML) {
		if s.html == nil {
			return errTemplatesNotLoaded
		}
		var buf bytes.Buffer
		if err := s.html.RenderInvoice(&buf, inv); err != nil {
			return fmt.Errorf("render invoice: %w", err)
		}
		logger.InfoContext(ctx, "Invoice rendered", log.FieldEntityID, inv.PaymentID, log.FieldFormat, report.FormatHTML)
		writeDocument(w, report.FormatHTML.ContentType(), "", false, buf.Bytes())
		return nil
	}

	if s.pdf == nil {
		return report.ErrPDFUnavailable
	}
	out, err := s.pdf.RenderInvoice(ctx, inv)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "Invoice rendered", log.FieldEntityID, inv.PaymentID, log.FieldFormat, report.FormatPDF)
	writeDocument(w, report.FormatPDF.ContentType(), fmt.Sprintf("invoice_%s.pdf", inv.InvoiceNumber), true, out)
	return nil
}
