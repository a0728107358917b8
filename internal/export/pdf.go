package export

import (
	"io"

	"github.com/go-pdf/fpdf"

	"rotaline/internal/rota"
)

const (
	nameColWidth = 46.0
	lineHeight   = 5.0
)

// WritePDF renders the rota rows as a landscape A4 table.
func WritePDF(w io.Writer, week rota.Week, rows []rota.Row) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	title := Title(week)
	pdf.SetTitle(title, true)
	pdf.SetCreator("rotaline", true)

	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	dayColWidth := (pageW - left - right - nameColWidth) / 7
	widths := [8]float64{nameColWidth}
	for i := 1; i < len(widths); i++ {
		widths[i] = dayColWidth
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(220, 220, 220)
		labels := DayHeaders(week)
		pdf.CellFormat(widths[0], 7, "Name", "1", 0, "L", true, 0, "")
		for i, label := range labels {
			ln := 0
			if i == len(labels)-1 {
				ln = 1
			}
			pdf.CellFormat(widths[i+1], 7, label, "1", ln, "C", true, 0, "")
		}
		pdf.SetFont("Helvetica", "", 8)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	header()

	for _, row := range rows {
		cells := [8][]string{{row.Person.Name}}
		height := lineHeight
		for i, c := range row.Cells {
			cells[i+1] = CellLines(c)
			if h := float64(len(cells[i+1])) * lineHeight; h > height {
				height = h
			}
		}
		height += 2
		if pdf.GetY()+height > pageH-bottom {
			pdf.AddPage()
			header()
		}
		x, y := left, pdf.GetY()
		for i, lines := range cells {
			pdf.Rect(x, y, widths[i], height, "D")
			for n, line := range lines {
				pdf.SetXY(x+1, y+1+float64(n)*lineHeight)
				pdf.CellFormat(widths[i]-2, lineHeight, tr(line), "", 0, "L", false, 0, "")
			}
			x += widths[i]
		}
		pdf.SetXY(left, y+height)
	}
	return pdf.Output(w)
}
