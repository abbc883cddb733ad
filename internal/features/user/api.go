package user

import (
	"estate-cms/internal/config"
	"estate-cms/internal/middleware"
	"estate-cms/internal/permissions"

	"github.com/gofiber/fiber/v2"
)

type UserApi struct {
	controller *UserController
	config     *config.Config
	sessions   middleware.SessionValidator
	auditor    middleware.AuditWriter
}

func NewUserApi(controller *UserController, config *config.Config, sessions middleware.SessionValidator, auditor middleware.AuditWriter) *UserApi {
	return &UserApi{
		controller: controller,
		config:     config,
		sessions:   sessions,
		auditor:    auditor,
	}
}

// Setup registers all user management routes.
func (h *UserApi) Setup(app *fiber.App) {
	users := app.Group("/api/users",
		middleware.AuthMiddleware(h.sessions),
		middleware.RateLimitMiddleware(h.config),
	)

	users.Get("/", middleware.RequireCollectionAction(h.auditor, permissions.CollectionUsers, permissions.ActionView), h.controller.ListUsers)
	users.Get("/:id", middleware.RequireCollectionAction(h.auditor, permissions.CollectionUsers, permissions.ActionView), h.controller.GetUser)
	users.Post("/", middleware.RequireCapability(h.auditor, permissions.CapabilityManageUsers, "User management requires admin privileges"), h.controller.CreateUser)
	users.Put("/:id", middleware.RequireCollectionAction(h.auditor, permissions.CollectionUsers, permissions.ActionEdit), h.controller.UpdateProfile)
	users.Delete("/:id", middleware.RequireCollectionAction(h.auditor, permissions.CollectionUsers, permissions.ActionDelete), h.controller.DeleteUser)

	// Role, status and permission mutations are capability-gated rather than
	// collection-gated: they reshape the authorization model itself.
	manage := middleware.RequireCapability(h.auditor, permissions.CapabilityManageUsers, "User management requires admin privileges")
	users.Put("/:id/role", manage, h.controller.ChangeRole)
	users.Put("/:id/status", manage, h.controller.ChangeStatus)
	users.Put("/:id/permissions", manage, h.controller.UpsertGrant)
	users.Delete("/:id/permissions/:collection", manage, h.controller.RemoveGrant)
	users.Put("/:id/overrides", manage, h.controller.UpsertOverride)
	users.Delete("/:id/overrides/:collection", manage, h.controller.RemoveOverride)
}
