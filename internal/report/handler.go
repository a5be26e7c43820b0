package report

import (
	"strconv"
	"time"

	"tokopos-backend/internal/database"
	"tokopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type MethodTotal struct {
	PaymentMethod models.PaymentMethod `json:"payment_method" gorm:"column:payment_method"`
	Count         int64                `json:"count" gorm:"column:count"`
	Revenue       int64                `json:"revenue" gorm:"column:revenue"`
}

type DayTotal struct {
	Day     string `json:"day" gorm:"column:day"`
	Count   int64  `json:"count" gorm:"column:count"`
	Revenue int64  `json:"revenue" gorm:"column:revenue"`
}

type SummaryResponse struct {
	From         string        `json:"from"`
	To           string        `json:"to"`
	Transactions int64         `json:"transactions"`
	Revenue      int64         `json:"revenue"`
	TaxCollected int64         `json:"tax_collected"`
	Pending      int64         `json:"pending"`
	ByMethod     []MethodTotal `json:"by_method"`
	ByDay        []DayTotal    `json:"by_day"`
}

type TopProduct struct {
	ProductID    uint   `json:"product_id" gorm:"column:product_id"`
	Name         string `json:"name" gorm:"column:name"`
	SKU          string `json:"sku" gorm:"column:sku"`
	QuantitySold int64  `json:"quantity_sold" gorm:"column:quantity_sold"`
	Revenue      int64  `json:"revenue" gorm:"column:revenue"`
}

// parseRange reads from/to query params (YYYY-MM-DD). Defaults to the last 30
// days; to is inclusive.
func parseRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	now := time.Now()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := to.AddDate(0, 0, -29)

	if fromStr := c.Query("from"); fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "Invalid from date, expected YYYY-MM-DD")
		}
		from = parsed
	}
	if toStr := c.Query("to"); toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "Invalid to date, expected YYYY-MM-DD")
		}
		to = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "to must not be before from")
	}
	return from, to, nil
}

// GET /api/reports/summary?from=&to=
// Revenue counts PAID transactions only; pending payments are reported
// separately and never mixed into revenue.
func SummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := parseRange(c)
		if err != nil {
			return err
		}
		end := to.AddDate(0, 0, 1)

		paid := func() *gorm.DB {
			return database.DB.Model(&models.Transaction{}).
				Where("payment_status = ?", models.PaymentStatusPaid).
				Where("created_at >= ? AND created_at < ?", from, end)
		}

		type totals struct {
			Count   int64 `gorm:"column:count"`
			Revenue int64 `gorm:"column:revenue"`
			Tax     int64 `gorm:"column:tax"`
		}
		var t totals
		if err := paid().
			Select("COUNT(*) AS count, COALESCE(SUM(final_amount), 0) AS revenue, COALESCE(SUM(tax_amount), 0) AS tax").
			Scan(&t).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build report")
		}

		var pending int64
		if err := database.DB.Model(&models.Transaction{}).
			Where("payment_status = ?", models.PaymentStatusPending).
			Where("created_at >= ? AND created_at < ?", from, end).
			Count(&pending).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build report")
		}

		var byMethod []MethodTotal
		if err := paid().
			Select("payment_method, COUNT(*) AS count, COALESCE(SUM(final_amount), 0) AS revenue").
			Group("payment_method").
			Order("revenue DESC").
			Scan(&byMethod).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build report")
		}

		var byDay []DayTotal
		if err := paid().
			Select("DATE(created_at) AS day, COUNT(*) AS count, COALESCE(SUM(final_amount), 0) AS revenue").
			Group("DATE(created_at)").
			Order("day ASC").
			Scan(&byDay).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build report")
		}

		return c.JSON(SummaryResponse{
			From:         from.Format("2006-01-02"),
			To:           to.Format("2006-01-02"),
			Transactions: t.Count,
			Revenue:      t.Revenue,
			TaxCollected: t.Tax,
			Pending:      pending,
			ByMethod:     byMethod,
			ByDay:        byDay,
		})
	}
}

// GET /api/reports/top-products?from=&to=&limit=
func TopProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := parseRange(c)
		if err != nil {
			return err
		}
		end := to.AddDate(0, 0, 1)

		limit := 10
		if l := c.Query("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
				limit = parsed
			}
		}

		var top []TopProduct
		err = database.DB.Model(&models.TransactionItem{}).
			Select("transaction_items.product_id, products.name, products.sku, "+
				"SUM(transaction_items.quantity) AS quantity_sold, "+
				"SUM(transaction_items.subtotal) AS revenue").
			Joins("JOIN transactions ON transactions.id = transaction_items.transaction_id").
			Joins("JOIN products ON products.id = transaction_items.product_id").
			Where("transactions.payment_status = ?", models.PaymentStatusPaid).
			Where("transactions.created_at >= ? AND transactions.created_at < ?", from, end).
			Group("transaction_items.product_id, products.name, products.sku").
			Order("revenue DESC").
			Limit(limit).
			Scan(&top).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build report")
		}

		return c.JSON(top)
	}
}

// GET /api/reports/low-stock
// Active products at or below their own minimum stock threshold.
func LowStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var products []models.Product
		if err := database.DB.
			Where("is_active = ? AND stock <= min_stock", true).
			Order("stock asc").
			Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build report")
		}
		return c.JSON(products)
	}
}
