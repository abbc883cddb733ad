package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"estate-cms/internal/common/models"
	"estate-cms/internal/permissions"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type staticValidator struct {
	user *models.User
	err  error
}

func (s *staticValidator) Validate(ctx context.Context, token string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

type recordingAuditor struct {
	entries []models.AuditLog
}

func (r *recordingAuditor) Record(ctx context.Context, entry models.AuditLog) {
	r.entries = append(r.entries, entry)
}

func agentUser() *models.User {
	return &models.User{
		ID:       primitive.NewObjectID(),
		Email:    "agent@example.com",
		FullRole: permissions.RoleAgent,
		Status:   models.StatusActive,
	}
}

func protectedApp(validator SessionValidator, auditor AuditWriter, handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	chain := append([]fiber.Handler{AuthMiddleware(validator)}, handlers...)
	chain = append(chain, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	app.Get("/protected", chain...)
	return app
}

func body(t *testing.T, resp io.Reader) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp).Decode(&out))
	return out
}

func TestMissingCredentialRejectedWithoutAudit(t *testing.T) {
	auditor := &recordingAuditor{}
	app := protectedApp(&staticValidator{user: agentUser()}, auditor,
		RequireCollectionAction(auditor, permissions.CollectionBlogs, permissions.ActionView))

	resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	payload := body(t, resp.Body)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "Authentication required", payload["error"])

	// Absence of credentials is not a security event.
	assert.Empty(t, auditor.entries)
}

func TestInvalidSessionRejected(t *testing.T) {
	auditor := &recordingAuditor{}
	app := protectedApp(&staticValidator{err: models.ErrInvalidSession}, auditor)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	payload := body(t, resp.Body)
	assert.Equal(t, "Invalid or expired session", payload["error"])
}

func TestDeniedActionWritesExactlyOneAuditEntry(t *testing.T) {
	auditor := &recordingAuditor{}
	// Agents have no access to blogs at all.
	app := protectedApp(&staticValidator{user: agentUser()}, auditor,
		RequireCollectionAction(auditor, permissions.CollectionBlogs, permissions.ActionView))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer valid")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	payload := body(t, resp.Body)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "Insufficient permissions", payload["error"])

	require.Len(t, auditor.entries, 1)
	entry := auditor.entries[0]
	assert.Equal(t, models.AuditUnauthorizedAccess, entry.Action)
	assert.False(t, entry.Success)
	assert.Equal(t, models.AuditLevelWarning, entry.Level)
	assert.Equal(t, "blogs", entry.Resource)
	assert.Equal(t, "view", entry.Details["required_action"])
	assert.Equal(t, "AGENT", entry.Details["role"])
}

func TestAllowedActionPassesThroughSilently(t *testing.T) {
	auditor := &recordingAuditor{}
	app := protectedApp(&staticValidator{user: agentUser()}, auditor,
		RequireCollectionAction(auditor, permissions.CollectionProjects, permissions.ActionView))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer valid")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, auditor.entries)
}

func TestUnknownCollectionParamRejectedBeforeEvaluation(t *testing.T) {
	auditor := &recordingAuditor{}
	app := fiber.New()
	app.Get("/api/content/:collection",
		AuthMiddleware(&staticValidator{user: agentUser()}),
		RequireCollectionParam(auditor, permissions.ActionView),
		func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"success": true}) })

	req := httptest.NewRequest("GET", "/api/content/spaceships", nil)
	req.Header.Set("Authorization", "Bearer valid")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	payload := body(t, resp.Body)
	assert.Equal(t, "Unknown collection", payload["error"])
	assert.Empty(t, auditor.entries)
}

func TestCapabilityDenialIncludesMessageAndAudit(t *testing.T) {
	auditor := &recordingAuditor{}
	app := protectedApp(&staticValidator{user: agentUser()}, auditor,
		RequireCapability(auditor, permissions.CapabilityViewAuditTrail, "Audit trail access requires system admin privileges"))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer valid")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	payload := body(t, resp.Body)
	assert.Equal(t, "Insufficient permissions", payload["error"])
	assert.Equal(t, "Audit trail access requires system admin privileges", payload["message"])

	require.Len(t, auditor.entries, 1)
	assert.Equal(t, "VIEW_AUDIT_TRAIL", auditor.entries[0].Details["required_capability"])
}

func TestCookieCredentialAccepted(t *testing.T) {
	auditor := &recordingAuditor{}
	app := protectedApp(&staticValidator{user: agentUser()}, auditor)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "valid"})
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
