package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fieldops-bot/pkg/util"
)

const adminKey = "auth_admin"

// AdminMiddleware validates bearer tokens for the admin API.
type AdminMiddleware struct {
	tokens *TokenManager
}

// NewAdminMiddleware constructs middleware.
func NewAdminMiddleware(tokens *TokenManager) *AdminMiddleware {
	return &AdminMiddleware{tokens: tokens}
}

// Handle enforces authentication for admin routes.
func (m *AdminMiddleware) Handle(c *fiber.Ctx) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}
	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return util.NewUnauthorized("invalid token")
	}
	c.Locals(adminKey, claims.Username)
	return c.Next()
}

// AdminFromContext retrieves the authenticated admin username.
func AdminFromContext(c *fiber.Ctx) (string, bool) {
	val := c.Locals(adminKey)
	username, ok := val.(string)
	return username, ok
}

// CronGuard authorizes scheduler calls with a shared bearer secret.
func CronGuard(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return util.NewUnauthorized("cron secret not configured")
		}
		token, err := bearerToken(c)
		if err != nil {
			return err
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return util.NewUnauthorized("invalid cron secret")
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", util.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", util.NewUnauthorized("invalid authorization header")
	}
	return parts[1], nil
}
