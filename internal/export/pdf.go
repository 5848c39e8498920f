package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/mmynk/billbook/internal/calculator"
	"github.com/mmynk/billbook/internal/models"
)

// DefaultPDFTimeout bounds one headless Chrome print.
const DefaultPDFTimeout = 30 * time.Second

// PDFExporter prints the rendered bill page to an A4 PDF with headless Chrome.
type PDFExporter struct {
	// Timeout bounds the whole print; zero means DefaultPDFTimeout.
	Timeout time.Duration

	// ExecPath overrides the Chrome binary chromedp looks up.
	ExecPath string
}

func (p PDFExporter) ContentType() string { return "application/pdf" }

func (p PDFExporter) Extension() string { return "pdf" }

// Export renders the bill page, serves it on a loopback listener and prints it.
func (p PDFExporter) Export(ctx context.Context, bill models.Bill, totals calculator.Totals, view models.View, w io.Writer) error {
	var rendered bytes.Buffer
	if err := RenderHTML(&rendered, NewDocument(bill, totals, view)); err != nil {
		return err
	}

	timeout := p.Timeout
	if timeout == 0 {
		timeout = DefaultPDFTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if p.ExecPath != "" {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.ExecPath(p.ExecPath))
		var cancelAlloc context.CancelFunc
		ctx, cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
		defer cancelAlloc()
	}
	ctx, cancelBrowser := chromedp.NewContext(ctx)
	defer cancelBrowser()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen for print page: %w", err)
	}
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write(rendered.Bytes())
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("Print page server stopped", "error", err)
		}
	}()
	defer srv.Close()

	url := fmt.Sprintf("http://%s/", listener.Addr().String())
	var buf []byte
	err = chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.7).
				WithMarginTop(0.4).
				WithMarginBottom(0.4).
				WithMarginLeft(0.4).
				WithMarginRight(0.4).
				WithPreferCSSPageSize(true).
				WithDisplayHeaderFooter(false).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to print pdf: %w", err)
	}

	_, err = w.Write(buf)
	return err
}
