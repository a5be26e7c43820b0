package auth

import (
	"strings"

	"tokopos-backend/internal/config"
	"tokopos-backend/internal/database"
	"tokopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type RegisterAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Role     models.UserRole `json:"role"`
	IsActive bool            `json:"is_active"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}

// POST /api/auth/register-admin (public bootstrap, only while no admin exists)
func RegisterAdminHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		if body.Name == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name, email and password are required")
		}

		var count int64
		database.DB.Model(&models.User{}).
			Where("role = ?", models.RoleAdmin).
			Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "An admin account already exists")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
			IsActive:     true,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create user")
		}

		return c.Status(fiber.StatusCreated).JSON(toUserResponse(&user))
	}
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Email and password are required")
		}

		var user models.User
		if err := database.DB.First(&user, "email = ?", body.Email).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
		}
		if !user.IsActive {
			return fiber.NewError(fiber.StatusUnauthorized, "Account is disabled")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not issue token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  toUserResponse(&user),
		})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := UserID(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return c.JSON(toUserResponse(&user))
	}
}
