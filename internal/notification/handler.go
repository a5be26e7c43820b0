package notification

import (
	"strconv"

	"tokopos-backend/internal/auth"
	"tokopos-backend/internal/database"
	"tokopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/notifications?unread=true&limit=
func ListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.Notification{}).Where("user_id = ?", userID)
		if c.Query("unread") == "true" {
			dbq = dbq.Where("is_read = ?", false)
		}

		limit := 50
		if l := c.Query("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
				limit = parsed
			}
		}

		var notifications []models.Notification
		if err := dbq.Order("created_at desc, id desc").Limit(limit).Find(&notifications).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list notifications")
		}
		return c.JSON(notifications)
	}
}

// GET /api/notifications/unread-count
func UnreadCountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var count int64
		if err := database.DB.Model(&models.Notification{}).
			Where("user_id = ? AND is_read = ?", userID, false).
			Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not count notifications")
		}
		return c.JSON(fiber.Map{"count": count})
	}
}

// PUT /api/notifications/:id/read
func MarkReadHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		id, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid notification id")
		}

		res := database.DB.Model(&models.Notification{}).
			Where("id = ? AND user_id = ?", id, userID).
			Update("is_read", true)
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update notification")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Notification not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PUT /api/notifications/read-all
func MarkAllReadHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		if err := database.DB.Model(&models.Notification{}).
			Where("user_id = ? AND is_read = ?", userID, false).
			Update("is_read", true).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update notifications")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DELETE /api/notifications/:id
func DeleteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		id, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid notification id")
		}

		res := database.DB.Delete(&models.Notification{}, "id = ? AND user_id = ?", id, userID)
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete notification")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Notification not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
