package report

import (
	"fmt"
	"time"

	"tokopos-backend/internal/database"
	"tokopos-backend/internal/models"

	"github.com/gocarina/gocsv"
	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

// ExportRow is one transaction flattened for spreadsheet consumption.
type ExportRow struct {
	Number        string `csv:"number"`
	CreatedAt     string `csv:"created_at"`
	Cashier       string `csv:"cashier"`
	PaymentMethod string `csv:"payment_method"`
	PaymentStatus string `csv:"payment_status"`
	Subtotal      int64  `csv:"subtotal"`
	TaxAmount     int64  `csv:"tax_amount"`
	Discount      int64  `csv:"discount"`
	FinalAmount   int64  `csv:"final_amount"`
	PaidAt        string `csv:"paid_at"`
	ItemCount     int    `csv:"item_count"`
}

func exportRows(c *fiber.Ctx) ([]ExportRow, time.Time, time.Time, error) {
	from, to, err := parseRange(c)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	end := to.AddDate(0, 0, 1)

	dbq := database.DB.Model(&models.Transaction{}).
		Preload("Items").Preload("Cashier").
		Where("created_at >= ? AND created_at < ?", from, end)
	if status := c.Query("status"); status != "" {
		dbq = dbq.Where("payment_status = ?", status)
	}

	var trxs []models.Transaction
	if err := dbq.Order("created_at asc, id asc").Find(&trxs).Error; err != nil {
		return nil, time.Time{}, time.Time{}, fiber.NewError(fiber.StatusInternalServerError, "Could not load transactions")
	}

	rows := make([]ExportRow, 0, len(trxs))
	for _, trx := range trxs {
		paidAt := ""
		if trx.PaidAt != nil {
			paidAt = trx.PaidAt.Format(time.RFC3339)
		}
		rows = append(rows, ExportRow{
			Number:        trx.Number,
			CreatedAt:     trx.CreatedAt.Format(time.RFC3339),
			Cashier:       trx.Cashier.Name,
			PaymentMethod: string(trx.PaymentMethod),
			PaymentStatus: string(trx.PaymentStatus),
			Subtotal:      trx.Subtotal,
			TaxAmount:     trx.TaxAmount,
			Discount:      trx.Discount,
			FinalAmount:   trx.FinalAmount,
			PaidAt:        paidAt,
			ItemCount:     len(trx.Items),
		})
	}
	return rows, from, to, nil
}

func exportFilename(from, to time.Time, ext string) string {
	return fmt.Sprintf("transactions_%s_%s.%s",
		from.Format("20060102"), to.Format("20060102"), ext)
}

// GET /api/reports/export/csv?from=&to=&status=
func ExportCSVHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, from, to, err := exportRows(c)
		if err != nil {
			return err
		}

		out, err := gocsv.MarshalBytes(&rows)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not encode CSV")
		}

		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition,
			`attachment; filename="`+exportFilename(from, to, "csv")+`"`)
		return c.Send(out)
	}
}

// GET /api/reports/export/xlsx?from=&to=&status=
func ExportXLSXHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, from, to, err := exportRows(c)
		if err != nil {
			return err
		}

		f := excelize.NewFile()
		defer f.Close()

		const sheet = "Transactions"
		f.SetSheetName(f.GetSheetName(0), sheet)

		header := []interface{}{
			"Number", "Created At", "Cashier", "Payment Method", "Payment Status",
			"Subtotal", "Tax", "Discount", "Final Amount", "Paid At", "Items",
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build workbook")
		}

		for i, r := range rows {
			cell := fmt.Sprintf("A%d", i+2)
			row := []interface{}{
				r.Number, r.CreatedAt, r.Cashier, r.PaymentMethod, r.PaymentStatus,
				r.Subtotal, r.TaxAmount, r.Discount, r.FinalAmount, r.PaidAt, r.ItemCount,
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not build workbook")
			}
		}

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not encode workbook")
		}

		c.Set(fiber.HeaderContentType,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition,
			`attachment; filename="`+exportFilename(from, to, "xlsx")+`"`)
		return c.Send(buf.Bytes())
	}
}
