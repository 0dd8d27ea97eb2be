package middleware

import (
	"strings"

	"diasporan-backend/internal/pkg/jwt"
	"diasporan-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// Authenticate reads a Bearer token and, when valid, stores the caller under
// Locals("user") as {user_id, email, role}. Requests without a token pass through
// anonymously; a malformed or expired token is rejected.
func Authenticate(tokens *jwt.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return response.Unauthorized(c, "Invalid authorization header")
		}
		claims, err := tokens.ValidateToken(strings.TrimSpace(raw))
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}
		c.Locals(userLocal, map[string]interface{}{
			"user_id": claims.Subject,
			"email":   claims.Email,
			"role":    claims.AppRole(),
		})
		return c.Next()
	}
}

// RequireAuth ensures a caller was authenticated. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := UserID(c); !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// GetUser returns the authenticated caller from Locals (nil if anonymous).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

func userField(c *fiber.Ctx, key string) string {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

// UserID returns the caller's id; ok is false for anonymous requests.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(userField(c, "user_id"))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func Email(c *fiber.Ctx) string {
	return userField(c, "email")
}

func Role(c *fiber.Ctx) string {
	return userField(c, "role")
}
