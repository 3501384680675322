package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"society/internal/core"
	"society/internal/log"
	"society/internal/report"
)

var errTemplatesNotLoaded = errors.New("templates not loaded")

// handleMonthlyReport serves the report rows of ?month=&year= as JSON or a
// rendered document chosen by ?format=.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	format, err := report.ParseFormat(q.Get("format"))
	if err != nil {
		return err
	}
	p, err := ParseMonthParams(q, s.now())
	if err != nil {
		return err
	}
	rows, err := s.svc.Reports.MonthlyRows(r.Context(), p.Month, p.Year)
	if err != nil {
		return err
	}
	return s.writeReport(w, r, rows, format)
}

func (s *Server) handleYearlyReport(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	format, err := report.ParseFormat(q.Get("format"))
	if err != nil {
		return err
	}
	year, err := queryInt(q, "year", s.now().Year())
	if err != nil {
		return err
	}
	rows, err := s.svc.Reports.YearlyRows(r.Context(), year)
	if err != nil {
		return err
	}
	return s.writeReport(w, r, rows, format)
}

func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, rows *core.ReportRows, format report.Format) error {
	ctx := r.Context()
	rows.Payments = orEmpty(rows.Payments)
	rows.Expenses = orEmpty(rows.Expenses)

	var body []byte
	switch format {
	case report.FormatJSON:
		writeJSON(w, http.StatusOK, rows)
		return nil
	case report.FormatHTML:
		if s.html == nil {
			return errTemplatesNotLoaded
		}
		var buf bytes.Buffer
		if err := s.html.RenderReport(&buf, rows); err != nil {
			return fmt.Errorf("render html report: %w", err)
		}
		body = buf.Bytes()
	case report.FormatXLSX:
		var buf bytes.Buffer
		if err := s.xlsx.RenderReport(&buf, rows); err != nil {
			return fmt.Errorf("render xlsx report: %w", err)
		}
		body = buf.Bytes()
	case report.FormatPDF:
		if s.pdf == nil {
			return report.ErrPDFUnavailable
		}
		out, err := s.pdf.RenderReport(ctx, rows)
		if err != nil {
			return err
		}
		body = out
	}

	log.FromContext(ctx).WithComponent(log.ComponentReport).InfoContext(ctx, "Report rendered",
		log.FieldFormat, format,
		log.FieldYear, rows.Year,
		log.FieldMonth, rows.Month,
		"bytes", len(body))
	writeDocument(w, format.ContentType(), report.Filename(rows, format), format != report.FormatHTML, body)
	return nil
}

func (s *Server) handleFlatReport(w http.ResponseWriter, r *http.Request) error {
	out, err := s.svc.Reports.FlatReport(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) handleExpenseTrend(w http.ResponseWriter, r *http.Request) error {
	rows, err := s.svc.Reports.ExpenseTrend(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, orEmpty(rows))
	return nil
}

// handleUserActivity accepts user_id and a month+year pair; the period
// applies only when both parts are given.
func (s *Server) handleUserActivity(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	userID, err := queryInt(q, "user_id", 0)
	if err != nil {
		return err
	}
	month, err := queryInt(q, "month", 0)
	if err != nil {
		return err
	}
	year, err := queryInt(q, "year", 0)
	if err != nil {
		return err
	}
	rows, err := s.svc.Reports.UserActivity(r.Context(), int64(userID), year, month)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, orEmpty(rows))
	return nil
}
