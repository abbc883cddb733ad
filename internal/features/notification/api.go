package notification

import (
	"estate-cms/internal/config"
	"estate-cms/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type NotificationApi struct {
	controller *NotificationController
	config     *config.Config
	sessions   middleware.SessionValidator
}

func NewNotificationApi(controller *NotificationController, config *config.Config, sessions middleware.SessionValidator) *NotificationApi {
	return &NotificationApi{
		controller: controller,
		config:     config,
		sessions:   sessions,
	}
}

func (h *NotificationApi) Setup(app *fiber.App) {
	group := app.Group("/api/notifications",
		middleware.AuthMiddleware(h.sessions),
		middleware.RateLimitMiddleware(h.config),
	)

	group.Get("/", h.controller.List)
	group.Get("/unread-count", h.controller.GetUnreadCount)
	group.Put("/:id/read", h.controller.MarkAsRead)
	group.Post("/mark-all-read", h.controller.MarkAllAsRead)

	// Live push channel. The auth middleware resolves the principal before the
	// protocol upgrade, so the conn handler can read it from Locals.
	app.Get("/api/ws", middleware.AuthMiddleware(h.sessions), func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}, websocket.New(h.controller.HandleWebSocket))
}
