package catalog

import (
	"strings"

	"tokopos-backend/internal/database"
	"tokopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GET /api/categories
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var categories []models.Category
		if err := database.DB.Order("name asc").Find(&categories).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list categories")
		}
		return c.JSON(categories)
	}
}

// POST /api/admin/categories (admin only)
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name is required")
		}

		var existing models.Category
		if err := database.DB.First(&existing, "name = ?", body.Name).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Category name is already in use")
		}

		category := models.Category{Name: body.Name, Description: body.Description}
		if err := database.DB.Create(&category).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create category")
		}
		return c.Status(fiber.StatusCreated).JSON(category)
	}
}

// PUT /api/admin/categories/:id (admin only)
func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var category models.Category
		if err := database.DB.First(&category, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Category not found")
		}

		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name is required")
		}

		var existing models.Category
		if err := database.DB.First(&existing, "name = ? AND id <> ?", body.Name, category.ID).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Category name is already in use")
		}

		category.Name = body.Name
		category.Description = body.Description
		if err := database.DB.Save(&category).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update category")
		}
		return c.JSON(category)
	}
}

// DELETE /api/admin/categories/:id (admin only). Refused while products still
// reference the category.
func DeleteCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var category models.Category
		if err := database.DB.First(&category, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Category not found")
		}

		var count int64
		if err := database.DB.Model(&models.Product{}).
			Where("category_id = ?", category.ID).
			Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete category")
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Category still has products")
		}

		if err := database.DB.Delete(&category).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete category")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
