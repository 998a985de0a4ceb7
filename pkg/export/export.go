package export

import (
	"fmt"
	"strings"
)

// Format selects an export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat normalises a user supplied format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Dataset defines tabular export content. When GroupBy names a header, the PDF starts a new
// section whenever that column changes value.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
	GroupBy string
}

// Renderer encodes datasets in every supported format.
type Renderer struct {
	csv *CSVExporter
	pdf *PDFExporter
}

// NewRenderer builds a renderer with the default exporters.
func NewRenderer() *Renderer {
	return &Renderer{csv: NewCSVExporter(), pdf: NewPDFExporter()}
}

// Render encodes the dataset.
func (r *Renderer) Render(data Dataset, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return r.csv.Render(data)
	case FormatPDF:
		return r.pdf.Render(data)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
