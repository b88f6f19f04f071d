package service

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"smy-nav-backend/internal/domain"
)

const (
	exportSheet    = "Invoices"
	exportPageSize = 100
)

var exportHeaders = []string{
	"Invoice Number", "Agency", "Agency Code", "Program", "Participants", "Unit Price", "Total Amount",
	"Status", "Payment Status", "Payment Version", "Due Date", "Paid At", "Created At",
}

// Export writes every invoice matching f as an XLSX workbook.
func (s *invoiceService) Export(ctx context.Context, f domain.InvoiceFilter, w io.Writer) error {
	xl := excelize.NewFile()
	defer xl.Close()

	if err := xl.SetSheetName(xl.GetSheetName(0), exportSheet); err != nil {
		return err
	}
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := xl.SetCellValue(exportSheet, cell, h); err != nil {
			return err
		}
	}

	row := 2
	f.Limit = exportPageSize
	for page := 1; ; page++ {
		f.Page = page
		list, total, err := s.invoices.List(ctx, f)
		if err != nil {
			return fmt.Errorf("list invoices: %w", err)
		}
		for i := range list {
			if err := writeInvoiceRow(xl, row, &list[i]); err != nil {
				return err
			}
			row++
		}
		if len(list) == 0 || page*exportPageSize >= total {
			break
		}
	}

	_, err := xl.WriteTo(w)
	return err
}

func writeInvoiceRow(xl *excelize.File, row int, inv *domain.TrainingInvoice) error {
	var agencyName, agencyCode string
	if inv.Agency != nil {
		agencyName, agencyCode = inv.Agency.Name, inv.Agency.Code
	}
	paidAt := ""
	if inv.PaidAt != nil {
		paidAt = inv.PaidAt.Format("2006-01-02")
	}
	values := []any{
		inv.InvoiceNumber, agencyName, agencyCode, inv.TrainingProgram, inv.ParticipantCount, inv.UnitPrice, inv.TotalAmount,
		string(inv.Status), string(inv.PaymentStatus), inv.PaymentVersion, inv.DueDate.Format("2006-01-02"), paidAt,
		inv.CreatedAt.Format("2006-01-02 15:04"),
	}
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		if err := xl.SetCellValue(exportSheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
