package content

import (
	"estate-cms/internal/config"
	"estate-cms/internal/middleware"
	"estate-cms/internal/permissions"

	"github.com/gofiber/fiber/v2"
)

type ContentApi struct {
	controller *ContentController
	config     *config.Config
	sessions   middleware.SessionValidator
	auditor    middleware.AuditWriter
}

func NewContentApi(controller *ContentController, config *config.Config, sessions middleware.SessionValidator, auditor middleware.AuditWriter) *ContentApi {
	return &ContentApi{
		controller: controller,
		config:     config,
		sessions:   sessions,
		auditor:    auditor,
	}
}

// Setup registers the generic content routes. Every route is authorized
// against the collection named in the path, with the action matching the
// operation.
func (h *ContentApi) Setup(app *fiber.App) {
	group := app.Group("/api/content/:collection",
		middleware.AuthMiddleware(h.sessions),
		middleware.RateLimitMiddleware(h.config),
	)

	require := func(action permissions.Action) fiber.Handler {
		return middleware.RequireCollectionParam(h.auditor, action)
	}

	group.Get("/", require(permissions.ActionView), h.controller.List)
	group.Get("/export", require(permissions.ActionExport), h.controller.Export)
	group.Post("/import", require(permissions.ActionImport), h.controller.Import)
	group.Post("/", require(permissions.ActionAdd), h.controller.Create)
	group.Get("/:id", require(permissions.ActionView), h.controller.Get)
	group.Put("/:id", require(permissions.ActionEdit), h.controller.Update)
	group.Delete("/:id", require(permissions.ActionDelete), h.controller.Delete)
	group.Put("/:id/approve", require(permissions.ActionApprove), h.controller.Approve)
	group.Put("/:id/reject", require(permissions.ActionReject), h.controller.Reject)
	group.Put("/:id/publish", require(permissions.ActionPublish), h.controller.Publish)
	group.Put("/:id/unpublish", require(permissions.ActionUnpublish), h.controller.Unpublish)
}
