package permreq

import (
	"errors"
	"strconv"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/internal/middleware"
	"estate-cms/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type PermissionRequestController struct {
	Service PermissionRequestService
}

func NewPermissionRequestController(service PermissionRequestService) *PermissionRequestController {
	return &PermissionRequestController{
		Service: service,
	}
}

type createRequestBody struct {
	Permissions           []RequestedPermission `json:"permissions"`
	Message               string                `json:"message"`
	BusinessJustification string                `json:"business_justification,omitempty"`
	RequestedExpiry       *time.Time            `json:"requested_expiry,omitempty"`
	Priority              RequestPriority       `json:"priority,omitempty"`
}

type reviewRequestBody struct {
	Action             string                `json:"action"`
	ReviewNotes        string                `json:"review_notes,omitempty"`
	GrantedPermissions []RequestedPermission `json:"granted_permissions,omitempty"`
	GrantedExpiry      *time.Time            `json:"granted_expiry,omitempty"`
}

func (ctrl *PermissionRequestController) Create(c *fiber.Ctx) error {
	var body createRequestBody
	if err := c.BodyParser(&body); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	req, err := ctrl.Service.CreateRequest(c.UserContext(), middleware.Principal(c), CreateInput{
		Permissions:           body.Permissions,
		Message:               body.Message,
		BusinessJustification: body.BusinessJustification,
		RequestedExpiry:       body.RequestedExpiry,
		Priority:              body.Priority,
	})
	if err != nil {
		return ctrl.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"request": req,
	})
}

func (ctrl *PermissionRequestController) List(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "50"), 10, 64)

	filters := ListRequestFilters{
		Status:      RequestStatus(c.Query("status")),
		RequesterID: c.Query("user_id"),
	}

	requests, stats, err := ctrl.Service.ListRequests(c.UserContext(), middleware.Principal(c), filters, limit)
	if err != nil {
		return ctrl.fail(c, err)
	}

	response := fiber.Map{
		"success":  true,
		"requests": requests,
	}
	if stats != nil {
		response["stats"] = stats
	}
	return c.JSON(response)
}

func (ctrl *PermissionRequestController) Review(c *fiber.Ctx) error {
	var body reviewRequestBody
	if err := c.BodyParser(&body); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	req, err := ctrl.Service.Review(c.UserContext(), middleware.Principal(c), c.Params("id"), ReviewInput{
		Action:             body.Action,
		ReviewNotes:        body.ReviewNotes,
		GrantedPermissions: body.GrantedPermissions,
		GrantedExpiry:      body.GrantedExpiry,
	})
	if err != nil {
		return ctrl.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"request": req,
	})
}

func (ctrl *PermissionRequestController) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return utils.Fail(c, fiber.StatusNotFound, "Permission request not found")
	case errors.Is(err, models.ErrConflict):
		return utils.Fail(c, fiber.StatusConflict, "Request already resolved")
	case errors.Is(err, ErrSuperAdminRequester),
		errors.Is(err, ErrNoPermissions),
		errors.Is(err, ErrDuplicatePermission),
		errors.Is(err, ErrUnknownPermission),
		errors.Is(err, ErrAlreadyHeld),
		errors.Is(err, ErrOverlappingRequest),
		errors.Is(err, ErrInvalidReviewAction),
		errors.Is(err, ErrGrantNotRequested),
		errors.Is(err, ErrUnknownPriority):
		return utils.Fail(c, fiber.StatusBadRequest, err.Error())
	default:
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to process permission request")
	}
}
