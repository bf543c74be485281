package infra

// pdf.go: receipt rendering with go-pdf/fpdf.
// A 74mm wide page close to thermal paper: store header, order number and
// time, line table, discount/tax/total block, tender breakdown.
// The file is written to storagePath/receipt_{order_number}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/money"
	"github.com/floradistro/websitev2-sub001/internal/pos"

	"github.com/go-pdf/fpdf"
)

// GenerateReceiptPDF renders the receipt for a persisted order and returns
// the path of the written file. storagePath is created if needed.
func GenerateReceiptPDF(order *model.Order, storeName, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	filePath := filepath.Join(storagePath, fmt.Sprintf("receipt_%s.pdf", order.OrderNumber))

	// Page grows with the number of lines; fpdf has no roll-paper size.
	height := 90 + 5*float64(len(order.Lines)) + 4*float64(len(order.Tenders))
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: height},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr(storeName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, "Order "+order.OrderNumber, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, order.CreatedAt.Format("2006-01-02  15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Lines ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.52
	col2 := contentW * 0.18
	col3 := contentW * 0.30

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, l := range order.Lines {
		name := []rune(l.ProductName)
		if len(name) > 24 {
			name = append(name[:23], '.')
		}
		pdf.CellFormat(col1, 5, tr(string(name)), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, "x"+l.Quantity.String(), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, dollars(l.LineTotal), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	row := func(label, value string) {
		pdf.CellFormat(col1+col2, 4, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4, value, "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "", 7)
	row("Subtotal:", dollars(order.Subtotal))
	if order.DiscountTotal > 0 {
		row("You saved:", dollars(order.DiscountTotal))
	}
	row(fmt.Sprintf("Tax (%s%%):", order.TaxRate.Shift(2).String()), dollars(order.TaxAmount))

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, dollars(order.Total), "", 1, "R", false, 0, "")

	// ── Payment ──────────────────────────────────────────────────────────────
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 7)
	switch order.PaymentMethod {
	case pos.MethodCash:
		if order.CashTendered != nil {
			row("Cash:", dollars(*order.CashTendered))
		}
		if order.ChangeGiven != nil {
			row("Change:", dollars(*order.ChangeGiven))
		}
	case pos.MethodCard:
		ref := ""
		if order.AuthorizationRef != nil {
			ref = *order.AuthorizationRef
		}
		row("Card "+ref+":", dollars(order.Total))
	case pos.MethodSplit:
		for _, t := range order.Tenders {
			label := string(t.Method)
			if t.Reference != nil {
				label += " " + *t.Reference
			}
			row(label+":", dollars(t.Amount))
		}
	}

	// ── Footer ───────────────────────────────────────────────────────────────
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Thank you!", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

func dollars(c money.Cents) string {
	if c < 0 {
		return "-$" + c.Abs().String()
	}
	return "$" + c.String()
}
