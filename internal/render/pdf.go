package render

import (
	"bytes"

	"github.com/go-pdf/fpdf"
)

// PDFRenderer lays the statement out on a single A4 page flow.
type PDFRenderer struct{}

func (PDFRenderer) Format() string      { return "pdf" }
func (PDFRenderer) ContentType() string { return "application/pdf" }

var pdfColumns = []struct {
	title string
	width float64
}{
	{"Date", 50},
	{"Type", 30},
	{"Amount", 40},
	{"Description", 70},
}

func (PDFRenderer) Render(v View) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "", 12)
	for _, line := range []string{v.Title(), v.PeriodLine(), v.DueLine()} {
		pdf.CellFormat(190, 10, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	for _, c := range pdfColumns {
		pdf.CellFormat(c.width, 10, c.title, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 12)
	for _, l := range v.Lines {
		cells := []string{l.Date, l.Kind, l.Amount, l.Description}
		for i, c := range pdfColumns {
			pdf.CellFormat(c.width, 10, tr(cells[i]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(5)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 10, tr(v.Footer), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
