package inventory

import (
	"strconv"
	"time"

	"tokopos-backend/internal/auth"
	"tokopos-backend/internal/database"
	"tokopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type AdjustRequest struct {
	Items []AdjustmentItem `json:"items"`
}

// POST /api/admin/inventory/adjustments (admin only)
// Applies each item independently; the response lists per-item outcomes.
func AdjustHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body AdjustRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "At least one adjustment item is required")
		}

		results := Adjust(database.DB, body.Items, userID)
		return c.JSON(fiber.Map{"results": results})
	}
}

type LogResponse struct {
	ID             uint                    `json:"id"`
	ProductID      uint                    `json:"product_id"`
	ProductName    string                  `json:"product_name"`
	Type           models.InventoryLogType `json:"type"`
	QuantityChange int                     `json:"quantity_change"`
	PreviousStock  int                     `json:"previous_stock"`
	NewStock       int                     `json:"new_stock"`
	Reason         string                  `json:"reason"`
	UserID         uint                    `json:"user_id"`
	CreatedAt      time.Time               `json:"created_at"`
}

// GET /api/admin/inventory/logs?product_id=&type=&from=&to=&limit=
func ListLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.InventoryLog{}).Preload("Product")

		if pid := c.Query("product_id"); pid != "" {
			id, err := strconv.ParseUint(pid, 10, 64)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid product_id")
			}
			dbq = dbq.Where("product_id = ?", id)
		}
		if typ := c.Query("type"); typ != "" {
			dbq = dbq.Where("type = ?", typ)
		}
		if fromStr := c.Query("from"); fromStr != "" {
			from, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid from date, expected YYYY-MM-DD")
			}
			dbq = dbq.Where("created_at >= ?", from)
		}
		if toStr := c.Query("to"); toStr != "" {
			to, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid to date, expected YYYY-MM-DD")
			}
			dbq = dbq.Where("created_at < ?", to.AddDate(0, 0, 1))
		}

		limit := 100
		if l := c.Query("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
				limit = parsed
			}
		}

		var logs []models.InventoryLog
		if err := dbq.Order("created_at desc, id desc").Limit(limit).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list inventory logs")
		}

		res := make([]LogResponse, 0, len(logs))
		for _, lg := range logs {
			res = append(res, LogResponse{
				ID:             lg.ID,
				ProductID:      lg.ProductID,
				ProductName:    lg.Product.Name,
				Type:           lg.Type,
				QuantityChange: lg.QuantityChange,
				PreviousStock:  lg.PreviousStock,
				NewStock:       lg.NewStock,
				Reason:         lg.Reason,
				UserID:         lg.UserID,
				CreatedAt:      lg.CreatedAt,
			})
		}
		return c.JSON(res)
	}
}
