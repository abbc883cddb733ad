package audit

import (
	"context"
	"net/http/httptest"
	"testing"

	common_models "estate-cms/internal/common/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exportingService struct {
	AuditService
	recorded []common_models.AuditLog
}

func (s *exportingService) Record(ctx context.Context, entry common_models.AuditLog) {
	s.recorded = append(s.recorded, entry)
}

func (s *exportingService) ExportToExcel(ctx context.Context, filters ListFilters) ([]byte, string, error) {
	return []byte("workbook"), "audit-2026-09-01.xlsx", nil
}

func TestExportLogsAuditsItself(t *testing.T) {
	svc := &exportingService{}
	ctrl := NewAuditController(svc)

	app := fiber.New()
	app.Get("/export", func(c *fiber.Ctx) error {
		c.Locals(common_models.AuditContextKey, &common_models.AuditContext{
			UserID:    "admin-id",
			Email:     "admin@example.com",
			IPAddress: "10.0.0.1",
		})
		return c.Next()
	}, ctrl.ExportLogs)

	resp, err := app.Test(httptest.NewRequest("GET", "/export", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "audit-2026-09-01.xlsx")

	require.Len(t, svc.recorded, 1)
	entry := svc.recorded[0]
	assert.Equal(t, common_models.AuditTrailExported, entry.Action)
	assert.Equal(t, "audit-logs", entry.Resource)
	assert.Equal(t, "admin@example.com", entry.UserEmail)
	assert.Equal(t, "10.0.0.1", entry.IP)
}
