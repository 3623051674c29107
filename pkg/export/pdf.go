package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const pdfUsableWidth = 277.0

// PDFRenderer lays datasets out as a landscape A4 table.
type PDFRenderer struct {
	now func() time.Time
}

// NewPDFRenderer constructs a PDF renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{now: time.Now}
}

// Extension implements Renderer.
func (r *PDFRenderer) Extension() string { return ".pdf" }

// ContentType implements Renderer.
func (r *PDFRenderer) ContentType() string { return "application/pdf" }

// Render implements Renderer.
func (r *PDFRenderer) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	widths := columnWidths(data.Columns)
	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, label := range data.labels() {
			pdf.CellFormat(widths[i], 8, tr(label), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}

	pdf.AddPage()
	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 8, tr(data.Title), "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s - %d rows", r.now().UTC().Format(time.RFC1123), len(data.Rows)), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range data.Rows {
		if pdf.GetY()+7 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		for i, col := range data.Columns {
			pdf.CellFormat(widths[i], 7, tr(truncate(row[col.Key], widths[i])), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(cols []Column) []float64 {
	total := 0.0
	for _, col := range cols {
		total += weight(col)
	}
	widths := make([]float64, len(cols))
	for i, col := range cols {
		widths[i] = pdfUsableWidth * weight(col) / total
	}
	return widths
}

func weight(col Column) float64 {
	if col.Width <= 0 {
		return 1
	}
	return col.Width
}

// truncate keeps cell text roughly inside its column at the body font size.
func truncate(value string, width float64) string {
	limit := int(width / 2)
	runes := []rune(value)
	if limit < 4 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
