package auth

import (
	"errors"
	"strings"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/internal/middleware"
	"estate-cms/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	AuthService AuthService
}

func NewAuthController(authService AuthService) *AuthController {
	return &AuthController{
		AuthService: authService,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (ctrl *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return utils.Fail(c, fiber.StatusBadRequest, "Email and password are required")
	}

	meta := LoginMeta{IP: c.IP(), UserAgent: c.Get(fiber.HeaderUserAgent)}

	token, user, err := ctrl.AuthService.Login(c.UserContext(), req.Email, req.Password, meta)
	if err != nil {
		// All authentication failures look the same to the caller.
		if errors.Is(err, ErrInvalidCredentials) ||
			errors.Is(err, models.ErrAccountInactive) ||
			errors.Is(err, models.ErrAccountLocked) {
			return utils.Fail(c, fiber.StatusUnauthorized, "Invalid credentials")
		}
		return utils.Fail(c, fiber.StatusInternalServerError, "Internal server error")
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(12 * time.Hour),
	})

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    ctrl.AuthService.Snapshot(user),
	})
}

func (ctrl *AuthController) Logout(c *fiber.Ctx) error {
	user := middleware.Principal(c)

	token := c.Cookies(middleware.SessionCookie)
	if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
		token = strings.TrimSpace(header[7:])
	}

	ctrl.AuthService.Logout(c.UserContext(), token, user)
	c.ClearCookie(middleware.SessionCookie)

	return c.JSON(fiber.Map{"success": true, "message": "Logged out"})
}

// Me returns the client-safe permission snapshot of the current principal.
func (ctrl *AuthController) Me(c *fiber.Ctx) error {
	user := middleware.Principal(c)
	return c.JSON(fiber.Map{"success": true, "user": ctrl.AuthService.Snapshot(user)})
}
