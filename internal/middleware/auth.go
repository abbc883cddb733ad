package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the cookie carrying the session token for browser clients.
// API clients use the Authorization header instead.
const SessionCookie = "session"

// SessionValidator resolves a session credential to a principal snapshot.
// Implemented by the session service; the snapshot may be up to one cache TTL
// out of date.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware extracts the session credential, resolves the principal and
// injects it into the request context. A request without a credential is
// rejected with 401 and no audit record; only the presence of an invalid
// credential is a security event, and that is audited downstream.
func AuthMiddleware(sessions SessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractToken(c)
		if token == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "Authentication required")
		}

		user, err := sessions.Validate(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, models.ErrProfileNotFound) {
				return utils.Fail(c, fiber.StatusUnauthorized, "User profile not found")
			}
			return utils.Fail(c, fiber.StatusUnauthorized, "Invalid or expired session")
		}

		auditCtx := &models.AuditContext{
			UserID:    user.ID.Hex(),
			Email:     user.Email,
			Timestamp: time.Now(),
			IPAddress: c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		}

		c.Locals(models.PrincipalKey, user)
		c.Locals(models.AuditContextKey, auditCtx)

		// Mirror into the user context so services reached through
		// c.UserContext() see the actor as well.
		ctx := context.WithValue(c.UserContext(), models.PrincipalKey, user)
		ctx = context.WithValue(ctx, models.AuditContextKey, auditCtx)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// Principal returns the resolved user for the current request, nil when the
// route is not behind AuthMiddleware.
func Principal(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(models.PrincipalKey).(*models.User)
	return user
}

// AuditContext returns the audit context assembled for the current request.
func AuditContext(c *fiber.Ctx) *models.AuditContext {
	actx, _ := c.Locals(models.AuditContextKey).(*models.AuditContext)
	if actx == nil {
		return &models.AuditContext{Timestamp: time.Now(), IPAddress: c.IP(), UserAgent: c.Get(fiber.HeaderUserAgent)}
	}
	return actx
}

func extractToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return c.Cookies(SessionCookie)
}
