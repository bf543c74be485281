package infra

import (
	"fmt"
	"io"

	"github.com/floradistro/websitev2-sub001/internal/dto"
	"github.com/floradistro/websitev2-sub001/internal/money"

	"github.com/tealeg/xlsx"
)

// WriteSessionWorkbook writes a session report as an .xlsx workbook with
// Summary, Movements and Orders sheets.
func WriteSessionWorkbook(w io.Writer, report *dto.SessionReportResponse, orders []dto.OrderResponse) error {
	file := xlsx.NewFile()

	summary, err := file.AddSheet("Summary")
	if err != nil {
		return fmt.Errorf("xlsx: add summary sheet: %w", err)
	}
	kv := func(k, v string) {
		row := summary.AddRow()
		row.AddCell().SetString(k)
		row.AddCell().SetString(v)
	}
	optional := func(c *money.Cents) string {
		if c == nil {
			return ""
		}
		return c.String()
	}
	kv("Session", report.SessionNumber)
	kv("Register", report.RegisterID.String())
	kv("Status", report.Status)
	kv("Opened at", report.OpenedAt.Format("2006-01-02 15:04:05"))
	if report.ClosedAt != nil {
		kv("Closed at", report.ClosedAt.Format("2006-01-02 15:04:05"))
	}
	kv("Opening cash", report.OpeningCash.String())
	kv("Total sales", report.TotalSales.String())
	kv("Transactions", fmt.Sprintf("%d", report.TotalTransactions))
	kv("Cash sales net of refunds", report.TotalCash.String())
	kv("Expected balance", report.CurrentBalance.String())
	kv("Counted cash", optional(report.ClosingCash))
	kv("Variance", optional(report.Variance))
	if report.VarianceClass != nil {
		kv("Variance class", *report.VarianceClass)
	}

	movements, err := file.AddSheet("Movements")
	if err != nil {
		return fmt.Errorf("xlsx: add movements sheet: %w", err)
	}
	header := movements.AddRow()
	for _, h := range []string{"Time", "Type", "Amount", "Reason", "Reference"} {
		header.AddCell().SetString(h)
	}
	for _, m := range report.Movements {
		row := movements.AddRow()
		row.AddCell().SetString(m.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(m.Type)
		row.AddCell().SetString(m.Amount.String())
		row.AddCell().SetString(m.Reason)
		ref := ""
		if m.ReferenceID != nil {
			ref = m.ReferenceID.String()
		}
		row.AddCell().SetString(ref)
	}

	orderSheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("xlsx: add orders sheet: %w", err)
	}
	header = orderSheet.AddRow()
	for _, h := range []string{"Order", "Time", "Method", "Subtotal", "Discount", "Tax", "Total", "Inventory"} {
		header.AddCell().SetString(h)
	}
	for _, o := range orders {
		row := orderSheet.AddRow()
		row.AddCell().SetString(o.OrderNumber)
		row.AddCell().SetString(o.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(o.PaymentMethod)
		row.AddCell().SetString(o.Subtotal.String())
		row.AddCell().SetString(o.Discount.String())
		row.AddCell().SetString(o.Tax.String())
		row.AddCell().SetString(o.Total.String())
		row.AddCell().SetString(o.InventoryStatus)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}
