package notification

import (
	"strconv"

	"estate-cms/internal/common/models"
	"estate-cms/internal/middleware"
	"estate-cms/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type NotificationController struct {
	service NotificationService
	hub     *Hub
}

func NewNotificationController(service NotificationService, hub *Hub) *NotificationController {
	return &NotificationController{
		service: service,
		hub:     hub,
	}
}

func (ctrl *NotificationController) List(c *fiber.Ctx) error {
	principal := middleware.Principal(c)
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "10"), 10, 64)

	notifications, total, err := ctrl.service.GetUserNotifications(c.UserContext(), principal.ID, page, limit)
	if err != nil {
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to fetch notifications")
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"notifications": notifications,
		"total":         total,
		"page":          page,
		"limit":         limit,
	})
}

func (ctrl *NotificationController) GetUnreadCount(c *fiber.Ctx) error {
	principal := middleware.Principal(c)

	count, err := ctrl.service.GetUnreadCount(c.UserContext(), principal.ID)
	if err != nil {
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to count notifications")
	}

	return c.JSON(fiber.Map{"success": true, "count": count})
}

func (ctrl *NotificationController) MarkAsRead(c *fiber.Ctx) error {
	principal := middleware.Principal(c)

	if err := ctrl.service.MarkAsRead(c.UserContext(), c.Params("id"), principal.ID); err != nil {
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to update notification")
	}

	return c.JSON(fiber.Map{"success": true})
}

func (ctrl *NotificationController) MarkAllAsRead(c *fiber.Ctx) error {
	principal := middleware.Principal(c)

	if err := ctrl.service.MarkAllAsRead(c.UserContext(), principal.ID); err != nil {
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to update notifications")
	}

	return c.JSON(fiber.Map{"success": true})
}

// HandleWebSocket keeps the connection registered on the hub until the client
// disconnects. Incoming frames are drained and discarded; the stream is
// server-to-client only.
func (ctrl *NotificationController) HandleWebSocket(conn *websocket.Conn) {
	user, _ := conn.Locals(string(models.PrincipalKey)).(*models.User)
	if user == nil {
		_ = conn.Close()
		return
	}

	userID := user.ID.Hex()
	ctrl.hub.Register(userID, conn)
	defer ctrl.hub.Unregister(userID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
