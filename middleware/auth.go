// middleware/auth.go
package middleware

import (
	"errors"
	"strings"

	"chess-match-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// AuthRequired verifies the bearer JWT issued by /login and attaches the
// caller's identity to the request context. Tokens of soft-deleted users are
// rejected even when otherwise valid.
func AuthRequired(db *gorm.DB, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "expired token"})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		rawID, ok := claims["user_id"].(float64)
		if !ok || rawID <= 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "token missing fields"})
		}
		userID := uint(rawID)

		var count int64
		if err := db.Model(&models.User{}).
			Where("id = ? AND deleted = ?", userID, false).
			Count(&count).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
		}
		if count == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "user has been deleted"})
		}

		c.Locals("user_id", userID)
		if name, ok := claims["user_name"].(string); ok {
			c.Locals("user_name", name)
		}
		return c.Next()
	}
}
