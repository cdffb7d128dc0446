package infra

// pdf.go: shift closing report using go-pdf/fpdf.
// One A4 page with:
//   - pump, attendant and shift window header
//   - meter readings and dispensed litres per fuel type
//   - sales channels and total
//   - consumables sold
//   - cash reconciliation, variance flagged when over threshold
//
// The output file is saved to storagePath/shift_{id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"fuelpump/internal/dto"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateShiftReportPDF renders the closing report of one shift.
// storagePath is created if needed. Returns the path to the generated file.
func GenerateShiftReportPDF(r *dto.ShiftReportPayload, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	filePath := filepath.Join(storagePath, fmt.Sprintf("shift_%s.pdf", r.ShiftID))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Shift Closing Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Pump %s  |  %s shift  |  %s", r.PumpID, r.ShiftType, r.StaffName), "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 5, fmt.Sprintf("%s  to  %s", r.StartTime, r.EndTime), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// ── Readings ─────────────────────────────────────────────────────────────
	section(pdf, contentW, "Meter readings")
	cols := []float64{contentW * 0.28, contentW * 0.18, contentW * 0.18, contentW * 0.18, contentW * 0.18}
	header(pdf, cols, "Fuel", "Opening", "Closing", "Dispensed", "Testing")
	pdf.SetFont("Helvetica", "", 9)
	for _, rd := range r.Readings {
		closing := "-"
		if rd.ClosingReading != nil {
			closing = rd.ClosingReading.StringFixed(2)
		}
		pdf.CellFormat(cols[0], 6, string(rd.FuelType), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], 6, rd.OpeningReading.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[2], 6, closing, "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], 6, rd.Dispensed.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[4], 6, rd.TestingFuel.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(cols[0]+cols[1]+cols[2], 6, "Total litres", "T", 0, "L", false, 0, "")
	pdf.CellFormat(cols[3]+cols[4], 6, r.Usage.TotalLiters.StringFixed(2), "T", 1, "R", false, 0, "")
	pdf.Ln(3)

	// ── Sales ────────────────────────────────────────────────────────────────
	section(pdf, contentW, "Sales")
	line(pdf, contentW, "Card", r.Sales.CardSales)
	line(pdf, contentW, "UPI", r.Sales.UpiSales)
	line(pdf, contentW, "Cash", r.Sales.CashSales)
	line(pdf, contentW, fmt.Sprintf("Indent (%s)", r.Sales.IndentSource), r.Sales.IndentSales)
	pdf.SetFont("Helvetica", "B", 10)
	line(pdf, contentW, "Total sales", r.Sales.TotalSales)
	pdf.Ln(3)

	// ── Consumables ──────────────────────────────────────────────────────────
	if len(r.Consumables) > 0 {
		section(pdf, contentW, "Consumables")
		ccols := []float64{contentW * 0.4, contentW * 0.15, contentW * 0.15, contentW * 0.15, contentW * 0.15}
		header(pdf, ccols, "Item", "Allocated", "Returned", "Sold", "Revenue")
		pdf.SetFont("Helvetica", "", 9)
		for _, c := range r.Consumables {
			name := c.Name
			if len(name) > 40 {
				name = name[:39] + "..."
			}
			pdf.CellFormat(ccols[0], 6, name, "", 0, "L", false, 0, "")
			pdf.CellFormat(ccols[1], 6, c.QuantityAllocated.String()+" "+c.Unit, "", 0, "R", false, 0, "")
			pdf.CellFormat(ccols[2], 6, c.QuantityReturned.String(), "", 0, "R", false, 0, "")
			pdf.CellFormat(ccols[3], 6, c.QuantitySold.String(), "", 0, "R", false, 0, "")
			pdf.CellFormat(ccols[4], 6, c.Revenue.StringFixed(2), "", 1, "R", false, 0, "")
		}
		pdf.Ln(3)
	}

	// ── Reconciliation ───────────────────────────────────────────────────────
	rec := r.Reconciliation
	section(pdf, contentW, "Cash reconciliation")
	line(pdf, contentW, "Expected cash", rec.ExpectedCash)
	line(pdf, contentW, "Cash remaining", rec.CashRemaining)
	line(pdf, contentW, "Expenses", rec.Expenses)
	line(pdf, contentW, "Consumable revenue ("+rec.Attribution+")", rec.ConsumableRevenue)
	pdf.SetFont("Helvetica", "B", 10)
	if rec.Flagged {
		pdf.SetTextColor(200, 0, 0)
	}
	line(pdf, contentW, "Difference", rec.Difference)
	pdf.SetTextColor(0, 0, 0)

	if len(r.Warnings) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "I", 8)
		for _, w := range r.Warnings {
			pdf.CellFormat(contentW, 4, "! "+w, "", 1, "L", false, 0, "")
		}
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

func section(pdf *fpdf.Fpdf, w float64, title string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(w, 7, title, "B", 1, "L", false, 0, "")
	pdf.Ln(1)
	pdf.SetFont("Helvetica", "", 9)
}

func header(pdf *fpdf.Fpdf, cols []float64, titles ...string) {
	pdf.SetFont("Helvetica", "B", 9)
	for i, t := range titles {
		align := "R"
		if i == 0 {
			align = "L"
		}
		ln := 0
		if i == len(titles)-1 {
			ln = 1
		}
		pdf.CellFormat(cols[i], 6, t, "B", ln, align, false, 0, "")
	}
}

func line(pdf *fpdf.Fpdf, w float64, label string, v decimal.Decimal) {
	pdf.CellFormat(w*0.7, 6, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(w*0.3, 6, v.StringFixed(2), "", 1, "R", false, 0, "")
}
