/**
 * @description
 * Shared-secret middleware for the non-buyer surfaces.
 * Admin endpoints (manual close, audit logs, score breakdowns) require the
 * admin token; ingestion endpoints fed by batch jobs require the job secret.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 *
 * @notes
 * - An empty configured secret rejects all callers rather than opening the
 *   surface: a misconfigured deployment must fail closed.
 */

package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/procurelane/backend/internal/config"
)

var authCfg *config.AuthConfig

// InitAuthMiddleware stores the shared secrets. Should be called at startup.
func InitAuthMiddleware(cfg *config.Config) {
	authCfg = &cfg.Auth
}

// AdminProtected guards admin-only routes with the admin bearer token
func AdminProtected() fiber.Handler {
	return bearerSecret(func() string {
		if authCfg == nil {
			return ""
		}
		return authCfg.AdminToken
	})
}

// JobProtected guards ingestion routes with the X-Job-Secret header
func JobProtected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := ""
		if authCfg != nil {
			secret = authCfg.JobSecret
		}
		if secret == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Ingestion secret not configured"})
		}
		provided := c.Get("X-Job-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid job secret"})
		}
		return c.Next()
	}
}

func bearerSecret(secret func() string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		configured := secret()
		if configured == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Admin token not configured"})
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization header"})
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token format"})
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(configured)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}
		return c.Next()
	}
}
