package audit

import (
	"estate-cms/internal/config"
	"estate-cms/internal/middleware"
	"estate-cms/internal/permissions"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	controller *AuditController
	config     *config.Config
	sessions   middleware.SessionValidator
	auditor    middleware.AuditWriter
}

func NewAuditApi(controller *AuditController, config *config.Config, sessions middleware.SessionValidator, auditor middleware.AuditWriter) *AuditApi {
	return &AuditApi{
		controller: controller,
		config:     config,
		sessions:   sessions,
		auditor:    auditor,
	}
}

// Setup registers the audit trail routes. The trail is read-only over HTTP;
// entries are only ever written server-side.
func (h *AuditApi) Setup(app *fiber.App) {
	logs := app.Group("/api/audit-logs",
		middleware.AuthMiddleware(h.sessions),
		middleware.RateLimitMiddleware(h.config),
		middleware.RequireCapability(h.auditor, permissions.CapabilityViewAuditTrail, "Audit trail access requires system admin privileges"),
	)

	logs.Get("/", h.controller.ListLogs)
	logs.Get("/export", middleware.RequireCollectionAction(h.auditor, permissions.CollectionSystem, permissions.ActionExport), h.controller.ExportLogs)
}
