package catalog

import (
	"strconv"
	"strings"

	"tokopos-backend/internal/auth"
	"tokopos-backend/internal/database"
	"tokopos-backend/internal/inventory"
	"tokopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProductResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	SKU        string `json:"sku"`
	Price      int64  `json:"price"`
	Cost       int64  `json:"cost"`
	Stock      int    `json:"stock"`
	MinStock   int    `json:"min_stock"`
	CategoryID uint   `json:"category_id"`
	IsActive   bool   `json:"is_active"`
}

func toProductResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		ID:         p.ID,
		Name:       p.Name,
		SKU:        p.SKU,
		Price:      p.Price,
		Cost:       p.Cost,
		Stock:      p.Stock,
		MinStock:   p.MinStock,
		CategoryID: p.CategoryID,
		IsActive:   p.IsActive,
	}
}

type CreateProductRequest struct {
	Name       string `json:"name"`
	SKU        string `json:"sku"`
	Price      int64  `json:"price"`
	Cost       int64  `json:"cost"`
	Stock      int    `json:"stock"`
	MinStock   int    `json:"min_stock"`
	CategoryID uint   `json:"category_id"`
}

type UpdateProductRequest struct {
	Name       *string `json:"name"`
	Price      *int64  `json:"price"`
	Cost       *int64  `json:"cost"`
	MinStock   *int    `json:"min_stock"`
	CategoryID *uint   `json:"category_id"`
	IsActive   *bool   `json:"is_active"`
}

// GET /api/products?category_id=&active=&q=
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Product{})

		if cid := c.Query("category_id"); cid != "" {
			id, err := strconv.ParseUint(cid, 10, 64)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid category_id")
			}
			dbq = dbq.Where("category_id = ?", id)
		}
		switch c.Query("active") {
		case "false":
			dbq = dbq.Where("is_active = ?", false)
		case "", "true":
			dbq = dbq.Where("is_active = ?", true)
		case "all":
		default:
			return fiber.NewError(fiber.StatusBadRequest, "active must be true, false or all")
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			dbq = dbq.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
		}

		var products []models.Product
		if err := dbq.Order("name asc").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list products")
		}

		res := make([]ProductResponse, 0, len(products))
		for i := range products {
			res = append(res, toProductResponse(&products[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/products/:id
func GetProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p models.Product
		if err := database.DB.First(&p, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}
		return c.JSON(toProductResponse(&p))
	}
}

// POST /api/admin/products (admin only)
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.SKU = strings.TrimSpace(strings.ToUpper(body.SKU))

		if body.Name == "" || body.SKU == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name and SKU are required")
		}
		if body.Price < 0 || body.Cost < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Price and cost cannot be negative")
		}
		if body.Stock < 0 || body.MinStock < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Stock values cannot be negative")
		}

		var category models.Category
		if err := database.DB.First(&category, "id = ?", body.CategoryID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Category not found")
		}

		var existing models.Product
		if err := database.DB.First(&existing, "sku = ?", body.SKU).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "SKU is already in use")
		}

		p := models.Product{
			Name:       body.Name,
			SKU:        body.SKU,
			Price:      body.Price,
			Cost:       body.Cost,
			Stock:      body.Stock,
			MinStock:   body.MinStock,
			CategoryID: body.CategoryID,
			IsActive:   true,
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			return inventory.LogInitialStock(tx, &p, userID)
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create product")
		}

		return c.Status(fiber.StatusCreated).JSON(toProductResponse(&p))
	}
}

// PUT /api/admin/products/:id (admin only)
// Stock is deliberately absent here; stock changes go through the inventory
// adjustment endpoint so every change lands in the ledger.
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p models.Product
		if err := database.DB.First(&p, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Name cannot be empty")
			}
			p.Name = name
		}
		if body.Price != nil {
			if *body.Price < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Price cannot be negative")
			}
			p.Price = *body.Price
		}
		if body.Cost != nil {
			if *body.Cost < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Cost cannot be negative")
			}
			p.Cost = *body.Cost
		}
		if body.MinStock != nil {
			if *body.MinStock < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Minimum stock cannot be negative")
			}
			p.MinStock = *body.MinStock
		}
		if body.CategoryID != nil {
			var category models.Category
			if err := database.DB.First(&category, "id = ?", *body.CategoryID).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "Category not found")
			}
			p.CategoryID = *body.CategoryID
		}
		if body.IsActive != nil {
			p.IsActive = *body.IsActive
		}

		if err := database.DB.Save(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update product")
		}
		return c.JSON(toProductResponse(&p))
	}
}

// DELETE /api/admin/products/:id (admin only) — soft delete via is_active so
// past transactions keep a valid product reference.
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		res := database.DB.Model(&models.Product{}).
			Where("id = ?", c.Params("id")).
			Update("is_active", false)
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete product")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
