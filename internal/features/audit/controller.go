package audit

import (
	"strconv"
	"time"

	common_models "estate-cms/internal/common/models"
	"estate-cms/internal/middleware"
	"estate-cms/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	AuditService AuditService
}

func NewAuditController(auditService AuditService) *AuditController {
	return &AuditController{
		AuditService: auditService,
	}
}

func filtersFromQuery(c *fiber.Ctx) ListFilters {
	filters := ListFilters{
		Action: c.Query("action"),
		UserID: c.Query("user_id"),
		Level:  c.Query("level"),
	}
	if raw := c.Query("success"); raw != "" {
		if ok, err := strconv.ParseBool(raw); err == nil {
			filters.Success = &ok
		}
	}
	if raw := c.Query("since"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.Since = &ts
		}
	}
	if raw := c.Query("until"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.Until = &ts
		}
	}
	return filters
}

// ListLogs returns a paginated slice of the audit trail, newest first.
func (ctrl *AuditController) ListLogs(c *fiber.Ctx) error {
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "25"), 10, 64)

	logs, total, err := ctrl.AuditService.ListLogs(c.UserContext(), filtersFromQuery(c), page, limit)
	if err != nil {
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to fetch audit logs")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"logs":    logs,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// ExportLogs streams the filtered trail as an Excel workbook. The export
// itself lands in the trail so consumption of audit data is also audited.
func (ctrl *AuditController) ExportLogs(c *fiber.Ctx) error {
	data, filename, err := ctrl.AuditService.ExportToExcel(c.UserContext(), filtersFromQuery(c))
	if err != nil {
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to export audit logs")
	}

	actor := middleware.AuditContext(c)
	ctrl.AuditService.Record(c.UserContext(), common_models.AuditLog{
		Action:    common_models.AuditTrailExported,
		Success:   true,
		Level:     common_models.AuditLevelInfo,
		UserID:    actor.UserID,
		UserEmail: actor.Email,
		IP:        actor.IPAddress,
		UserAgent: actor.UserAgent,
		Resource:  "audit-logs",
		Details:   map[string]interface{}{"filename": filename},
	})

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}
