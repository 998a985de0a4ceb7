package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth   = 277.0
	rowHeight   = 7.0
	headerFont  = 10.0
	bodyFont    = 9.0
	sectionFont = 12.0
)

// PDFExporter renders datasets into a landscape tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with the dataset title and one table per group.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	colWidth := pageWidth / float64(len(data.Headers))
	writeHeader := func() {
		pdf.SetFont("Arial", "B", headerFont)
		pdf.SetFillColor(230, 230, 230)
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 8, tr(header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	group := ""
	for i, row := range data.Rows {
		if data.GroupBy != "" && (i == 0 || row[data.GroupBy] != group) {
			group = row[data.GroupBy]
			if i > 0 {
				pdf.Ln(4)
			}
			pdf.SetFont("Arial", "B", sectionFont)
			pdf.CellFormat(0, 9, tr(group), "", 1, "L", false, 0, "")
			writeHeader()
		} else if i == 0 {
			writeHeader()
		}

		pdf.SetFont("Arial", "", bodyFont)
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, rowHeight, tr(row[header]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(data.Rows) == 0 {
		writeHeader()
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
