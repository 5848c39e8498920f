package export

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/mmynk/billbook/internal/calculator"
	"github.com/mmynk/billbook/internal/models"
)

//go:embed templates/bill.html
var templates embed.FS

var billTemplate = template.Must(template.ParseFS(templates, "templates/bill.html"))

// RenderHTML writes the bill table page for doc.
func RenderHTML(w io.Writer, doc Document) error {
	var buf bytes.Buffer
	if err := billTemplate.Execute(&buf, doc); err != nil {
		return fmt.Errorf("failed to render bill: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// HTMLExporter writes the rendered bill page as is.
type HTMLExporter struct{}

func (HTMLExporter) Export(_ context.Context, bill models.Bill, totals calculator.Totals, view models.View, w io.Writer) error {
	return RenderHTML(w, NewDocument(bill, totals, view))
}

func (HTMLExporter) ContentType() string { return "text/html; charset=utf-8" }

func (HTMLExporter) Extension() string { return "html" }
