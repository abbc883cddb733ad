package user

import (
	"errors"
	"strconv"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/internal/permissions"
	"estate-cms/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type UserController struct {
	UserService UserService
}

func NewUserController(userService UserService) *UserController {
	return &UserController{
		UserService: userService,
	}
}

type CreateUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	Status      string `json:"status,omitempty"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type ChangeStatusRequest struct {
	Status string `json:"status"`
}

type GrantRequest struct {
	Collection    string     `json:"collection"`
	SubRole       string     `json:"sub_role"`
	CustomActions []string   `json:"custom_actions,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// ListUsers returns a paginated list of users, optionally filtered by status
// or role.
func (ctrl *UserController) ListUsers(c *fiber.Ctx) error {
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "10"), 10, 64)

	filter := make(map[string]interface{})
	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}
	if role := c.Query("role"); role != "" {
		filter["full_role"] = role
	}

	users, total, err := ctrl.UserService.ListUsers(c.UserContext(), filter, page, limit)
	if err != nil {
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to fetch users")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"users":   users,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func (ctrl *UserController) GetUser(c *fiber.Ctx) error {
	user, err := ctrl.UserService.GetUserByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return utils.Fail(c, fiber.StatusNotFound, "User not found")
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

func (ctrl *UserController) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return utils.Fail(c, fiber.StatusBadRequest, "Email and password are required")
	}

	user, err := ctrl.UserService.CreateUser(c.UserContext(), CreateUserInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Role:        permissions.Role(req.Role),
		Status:      models.UserStatus(req.Status),
	})
	if err != nil {
		return ctrl.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "user": user})
}

func (ctrl *UserController) UpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	user, err := ctrl.UserService.UpdateProfile(c.UserContext(), c.Params("id"), req.DisplayName)
	if err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

func (ctrl *UserController) ChangeRole(c *fiber.Ctx) error {
	var req ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	user, err := ctrl.UserService.ChangeRole(c.UserContext(), c.Params("id"), permissions.Role(req.Role))
	if err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

func (ctrl *UserController) ChangeStatus(c *fiber.Ctx) error {
	var req ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	user, err := ctrl.UserService.ChangeStatus(c.UserContext(), c.Params("id"), models.UserStatus(req.Status))
	if err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

func (ctrl *UserController) UpsertGrant(c *fiber.Ctx) error {
	grant, err := ctrl.parseGrant(c)
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	user, err := ctrl.UserService.UpsertGrant(c.UserContext(), c.Params("id"), grant)
	if err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

func (ctrl *UserController) RemoveGrant(c *fiber.Ctx) error {
	user, err := ctrl.UserService.RemoveGrant(c.UserContext(), c.Params("id"), permissions.Collection(c.Params("collection")))
	if err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

func (ctrl *UserController) UpsertOverride(c *fiber.Ctx) error {
	grant, err := ctrl.parseGrant(c)
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	user, err := ctrl.UserService.UpsertOverride(c.UserContext(), c.Params("id"), grant)
	if err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

func (ctrl *UserController) RemoveOverride(c *fiber.Ctx) error {
	user, err := ctrl.UserService.RemoveOverride(c.UserContext(), c.Params("id"), permissions.Collection(c.Params("collection")))
	if err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

func (ctrl *UserController) DeleteUser(c *fiber.Ctx) error {
	if err := ctrl.UserService.DeleteUser(c.UserContext(), c.Params("id")); err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User deleted"})
}

func (ctrl *UserController) parseGrant(c *fiber.Ctx) (permissions.Grant, error) {
	var req GrantRequest
	if err := c.BodyParser(&req); err != nil {
		return permissions.Grant{}, err
	}

	grant := permissions.Grant{
		Collection: permissions.Collection(req.Collection),
		SubRole:    permissions.SubRole(req.SubRole),
		ExpiresAt:  req.ExpiresAt,
		GrantedAt:  time.Now(),
	}
	for _, a := range req.CustomActions {
		grant.CustomActions = append(grant.CustomActions, permissions.Action(a))
	}
	if actor, ok := c.Locals(models.AuditContextKey).(*models.AuditContext); ok && actor != nil {
		grant.GrantedBy = actor.Email
	}
	return grant, nil
}

func (ctrl *UserController) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return utils.Fail(c, fiber.StatusNotFound, "User not found")
	case errors.Is(err, models.ErrVersionMismatch):
		return utils.Fail(c, fiber.StatusConflict, "Concurrent update", "The user was modified by another request, retry")
	case errors.Is(err, ErrEmailTaken):
		return utils.Fail(c, fiber.StatusBadRequest, "Email already in use")
	case errors.Is(err, ErrUnknownRole), errors.Is(err, ErrUnknownStatus), errors.Is(err, ErrInvalidGrant):
		return utils.Fail(c, fiber.StatusBadRequest, "Validation failed", err.Error())
	default:
		return utils.Fail(c, fiber.StatusInternalServerError, "Internal server error")
	}
}
