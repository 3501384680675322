// Package report renders pre-aggregated report rows and invoices as HTML,
// PDF or XLSX. Renderers format what they receive and never compute totals.
package report

import (
	"errors"
	"fmt"
	"strings"

	"society/internal/core"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ErrPDFUnavailable is returned when no PDF printer is configured.
var ErrPDFUnavailable = errors.New("pdf rendering unavailable")

// ParseFormat reads a format query value; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatHTML, FormatPDF, FormatXLSX:
		return f, nil
	}
	return "", core.NewValidationError("format", "must be json, html, pdf or xlsx")
}

// ContentType is the response media type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/json"
}

// Filename builds the attachment name of a report, e.g. "report_2024_03.pdf".
func Filename(rows *core.ReportRows, f Format) string {
	if rows.Month == 0 {
		return fmt.Sprintf("report_%04d.%s", rows.Year, f)
	}
	return fmt.Sprintf("report_%04d_%02d.%s", rows.Year, rows.Month, f)
}
