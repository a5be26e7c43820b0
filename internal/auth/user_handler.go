package auth

import (
	"strings"

	"tokopos-backend/internal/database"
	"tokopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
}

// POST /api/admin/users (admin only): create cashier or additional admin accounts
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		if body.Name == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name, email and password are required")
		}

		switch body.Role {
		case models.RoleAdmin, models.RoleCashier:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Role must be 'admin' or 'cashier'")
		}

		var existing models.User
		if err := database.DB.First(&existing, "email = ?", body.Email).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Email is already in use")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         body.Role,
			IsActive:     true,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create user")
		}

		return c.Status(fiber.StatusCreated).JSON(toUserResponse(&user))
	}
}

// GET /api/admin/users
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.Order("name asc").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list users")
		}

		res := make([]UserResponse, 0, len(users))
		for i := range users {
			res = append(res, toUserResponse(&users[i]))
		}
		return c.JSON(res)
	}
}

// PUT /api/admin/users/:id/active — enable or disable an account
func SetUserActiveHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var body struct {
			IsActive *bool `json:"is_active"`
		}
		if err := c.BodyParser(&body); err != nil || body.IsActive == nil {
			return fiber.NewError(fiber.StatusBadRequest, "is_active is required")
		}

		var user models.User
		if err := database.DB.First(&user, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}

		user.IsActive = *body.IsActive
		if err := database.DB.Save(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update user")
		}
		return c.JSON(toUserResponse(&user))
	}
}
