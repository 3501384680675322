package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"society/internal/core"
	"society/web"
)

// HTMLRenderer executes the embedded report and invoice templates.
type HTMLRenderer struct {
	tmpl *template.Template
}

func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse report templates: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

func (r *HTMLRenderer) RenderReport(w io.Writer, rows *core.ReportRows) error {
	return r.execute(w, "report.html", rows)
}

func (r *HTMLRenderer) RenderInvoice(w io.Writer, inv *core.InvoiceData) error {
	return r.execute(w, "invoice.html", inv)
}

// execute renders into a buffer first so a failing template writes nothing.
func (r *HTMLRenderer) execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (r *HTMLRenderer) reportString(rows *core.ReportRows) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderReport(&buf, rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *HTMLRenderer) invoiceString(inv *core.InvoiceData) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderInvoice(&buf, inv); err != nil {
		return "", err
	}
	return buf.String(), nil
}
