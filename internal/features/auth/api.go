package auth

import (
	"estate-cms/internal/config"
	"estate-cms/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuthApi struct {
	controller *AuthController
	config     *config.Config
	sessions   SessionService
}

func NewAuthApi(controller *AuthController, config *config.Config, sessions SessionService) *AuthApi {
	return &AuthApi{
		controller: controller,
		config:     config,
		sessions:   sessions,
	}
}

func (h *AuthApi) Setup(app *fiber.App) {
	// Login is unauthenticated and throttled by IP.
	app.Post("/api/auth/login", middleware.RateLimitMiddleware(h.config), h.controller.Login)

	session := app.Group("/api/auth", middleware.AuthMiddleware(h.sessions))
	session.Post("/logout", h.controller.Logout)
	session.Get("/me", h.controller.Me)
}
