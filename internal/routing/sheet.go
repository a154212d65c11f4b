package routing

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// RenderSheet produces a printable route sheet for the crew.
func RenderSheet(plan *Plan, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle(fmt.Sprintf("Text2toss route %s", plan.Date), false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(fmt.Sprintf("Text2toss pickup route - %s", plan.Date)))
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, tr(plan.Message))
	pdf.Ln(6)
	if plan.DistanceMeters > 0 {
		pdf.Cell(0, 6, fmt.Sprintf("Total: %.1f mi, about %d min driving",
			float64(plan.DistanceMeters)/1609.34, plan.DurationSeconds/60))
		pdf.Ln(6)
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(10, 7, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 7, "Window", "1", 0, "", false, 0, "")
	pdf.CellFormat(95, 7, "Address", "1", 0, "", false, 0, "")
	pdf.CellFormat(32, 7, "Phone", "1", 0, "", false, 0, "")
	pdf.CellFormat(0, 7, "Done", "1", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, stop := range plan.Stops {
		pdf.CellFormat(10, 7, fmt.Sprintf("%d", stop.Sequence), "1", 0, "C", false, 0, "")
		pdf.CellFormat(28, 7, stop.PickupTime, "1", 0, "", false, 0, "")
		pdf.CellFormat(95, 7, tr(trim(stop.Address, 60)), "1", 0, "", false, 0, stop.MapsURL)
		pdf.CellFormat(32, 7, stop.Phone, "1", 0, "", false, 0, "")
		pdf.CellFormat(0, 7, "", "1", 1, "", false, 0, "")
		if stop.Notes != "" {
			pdf.SetFont("Helvetica", "I", 8)
			pdf.CellFormat(10, 5, "", "", 0, "", false, 0, "")
			pdf.MultiCell(0, 5, tr("Notes: "+stop.Notes), "", "", false)
			pdf.SetFont("Helvetica", "", 9)
		}
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 5, "Open full route in Google Maps", "", 1, "", false, 0, plan.RouteURL)
	pdf.Cell(0, 5, fmt.Sprintf("Generated %s", generatedAt.Format("Jan 2, 2006 3:04 PM")))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("routing: render sheet: %w", err)
	}
	return buf.Bytes(), nil
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
