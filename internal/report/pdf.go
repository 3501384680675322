package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"society/internal/core"
)

const defaultChromeTimeout = 30 * time.Second

// A4 in inches with 15mm margins.
const (
	a4Width  = 210 / 25.4
	a4Height = 297 / 25.4
	margin   = 15 / 25.4
)

// Printer turns a complete HTML document into PDF bytes.
type Printer interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

// ChromeConfig configures the headless Chrome printer.
type ChromeConfig struct {
	// RemoteURL is the DevTools websocket of a running Chrome. When empty a
	// local browser is launched.
	RemoteURL string
	Timeout   time.Duration
	// NoSandbox is required when running as root inside a container.
	NoSandbox bool
}

// ChromePrinter prints HTML through the Chrome DevTools Protocol.
type ChromePrinter struct {
	timeout     time.Duration
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

func NewChromePrinter(cfg ChromeConfig) *ChromePrinter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultChromeTimeout
	}
	p := &ChromePrinter{timeout: cfg.Timeout}

	if cfg.RemoteURL != "" {
		p.allocCtx, p.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return p
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	p.allocCtx, p.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return p
}

// PrintPDF loads html into a blank tab and prints it on A4.
func (p *ChromePrinter) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	if strings.TrimSpace(html) == "" {
		return nil, errors.New("html content is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(p.allocCtx)
	defer browserCancel()
	// stop the tab when the request goes away
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	start := time.Now()
	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("pdf rendering timed out after %v: %w", p.timeout, err)
		}
		return nil, fmt.Errorf("chromedp print: %w", err)
	}
	if len(pdf) == 0 {
		return nil, errors.New("generated PDF is empty")
	}
	slog.DebugContext(ctx, "PDF rendered", "bytes", len(pdf), "duration", time.Since(start))
	return pdf, nil
}

// Close releases the browser allocator.
func (p *ChromePrinter) Close() error {
	if p.allocCancel != nil {
		p.allocCancel()
	}
	return nil
}

// PDFRenderer prints the HTML rendering of reports and invoices.
type PDFRenderer struct {
	html    *HTMLRenderer
	printer Printer
}

// NewPDFRenderer accepts a nil printer; every render then fails with
// ErrPDFUnavailable.
func NewPDFRenderer(html *HTMLRenderer, printer Printer) *PDFRenderer {
	return &PDFRenderer{html: html, printer: printer}
}

func (r *PDFRenderer) RenderReport(ctx context.Context, rows *core.ReportRows) ([]byte, error) {
	if r.printer == nil {
		return nil, ErrPDFUnavailable
	}
	doc, err := r.html.reportString(rows)
	if err != nil {
		return nil, err
	}
	return r.printer.PrintPDF(ctx, doc)
}

func (r *PDFRenderer) RenderInvoice(ctx context.Context, inv *core.InvoiceData) ([]byte, error) {
	if r.printer == nil {
		return nil, ErrPDFUnavailable
	}
	doc, err := r.html.invoiceString(inv)
	if err != nil {
		return nil, err
	}
	return r.printer.PrintPDF(ctx, doc)
}
