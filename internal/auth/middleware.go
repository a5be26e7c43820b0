package auth

import (
	"fmt"
	"strings"

	"tokopos-backend/internal/config"
	"tokopos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
)

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header missing")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization must be 'Bearer <token>'")
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		claims, ok := token.Claims.(*JWTCustomClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Malformed token claims")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "Role claim missing")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Insufficient permissions")
	}
}

// UserID extracts the authenticated user id set by JWTMiddleware.
func UserID(c *fiber.Ctx) (uint, error) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return 0, fiber.NewError(fiber.StatusForbidden, "User claim missing")
	}
	return id, nil
}
