package permreq

import (
	"estate-cms/internal/config"
	"estate-cms/internal/middleware"
	"estate-cms/internal/permissions"

	"github.com/gofiber/fiber/v2"
)

type PermissionRequestApi struct {
	controller *PermissionRequestController
	config     *config.Config
	sessions   middleware.SessionValidator
	auditor    middleware.AuditWriter
}

func NewPermissionRequestApi(controller *PermissionRequestController, config *config.Config, sessions middleware.SessionValidator, auditor middleware.AuditWriter) *PermissionRequestApi {
	return &PermissionRequestApi{
		controller: controller,
		config:     config,
		sessions:   sessions,
		auditor:    auditor,
	}
}

func (h *PermissionRequestApi) Setup(app *fiber.App) {
	group := app.Group("/api/permission-requests",
		middleware.AuthMiddleware(h.sessions),
		middleware.RateLimitMiddleware(h.config),
	)

	// Create and list are open to any authenticated principal; the service
	// scopes non-admin listings to the caller's own requests.
	group.Post("/", h.controller.Create)
	group.Get("/", h.controller.List)
	group.Put("/:id/review", middleware.RequireCapability(h.auditor, permissions.CapabilityReviewPermissionRequests, "Reviewing permission requests requires admin privileges"), h.controller.Review)
}
