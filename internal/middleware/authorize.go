package middleware

import (
	"context"

	"estate-cms/internal/common/models"
	"estate-cms/internal/permissions"
	"estate-cms/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// AuditWriter is the slice of the audit service the authorization layer
// needs: a fire-and-forget append.
type AuditWriter interface {
	Record(ctx context.Context, entry models.AuditLog)
}

// CollectionParam is the route parameter naming the content collection on
// generic content routes.
const CollectionParam = "collection"

// RequireCollectionAction authorizes the request against a fixed
// (collection, action) pair. Denial writes exactly one audit entry and stops
// the chain with 403; the wrapped handler is never invoked.
func RequireCollectionAction(auditor AuditWriter, collection permissions.Collection, action permissions.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, auditor, collection, action)
	}
}

// RequireCollectionParam authorizes against the collection named in the
// route's :collection parameter. Unknown collections are rejected before any
// permission evaluation.
func RequireCollectionParam(auditor AuditWriter, action permissions.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		collection := permissions.Collection(c.Params(CollectionParam))
		if !permissions.ValidCollection(collection) {
			return utils.Fail(c, fiber.StatusBadRequest, "Unknown collection")
		}
		return authorize(c, auditor, collection, action)
	}
}

// RequireCapability gates a route on a system capability. The denial message
// names the capability so legitimate callers can debug their access.
func RequireCapability(auditor AuditWriter, capability permissions.SystemCapability, denialMessage string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := Principal(c)
		if user == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "Authentication required")
		}

		if !user.Subject().HasSystemCapability(capability) {
			actx := AuditContext(c)
			auditor.Record(c.UserContext(), models.AuditLog{
				Action:    models.AuditUnauthorizedAccess,
				Success:   false,
				Level:     models.AuditLevelWarning,
				UserID:    user.ID.Hex(),
				UserEmail: user.Email,
				IP:        actx.IPAddress,
				UserAgent: actx.UserAgent,
				Resource:  string(capability),
				Details: map[string]interface{}{
					"role":                string(user.FullRole),
					"required_capability": string(capability),
				},
			})
			return utils.Fail(c, fiber.StatusForbidden, "Insufficient permissions", denialMessage)
		}

		return c.Next()
	}
}

func authorize(c *fiber.Ctx, auditor AuditWriter, collection permissions.Collection, action permissions.Action) error {
	user := Principal(c)
	if user == nil {
		return utils.Fail(c, fiber.StatusUnauthorized, "Authentication required")
	}

	if !user.Subject().CanPerform(collection, action) {
		actx := AuditContext(c)
		auditor.Record(c.UserContext(), models.AuditLog{
			Action:    models.AuditUnauthorizedAccess,
			Success:   false,
			Level:     models.AuditLevelWarning,
			UserID:    user.ID.Hex(),
			UserEmail: user.Email,
			IP:        actx.IPAddress,
			UserAgent: actx.UserAgent,
			Resource:  string(collection),
			Details: map[string]interface{}{
				"role":            string(user.FullRole),
				"required_action": string(action),
			},
		})
		return utils.Fail(c, fiber.StatusForbidden, "Insufficient permissions")
	}

	return c.Next()
}
