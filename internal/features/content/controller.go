package content

import (
	"errors"
	"strconv"

	"estate-cms/internal/common/models"
	"estate-cms/internal/middleware"
	"estate-cms/internal/permissions"
	"estate-cms/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type ContentController struct {
	Service ContentService
}

func NewContentController(service ContentService) *ContentController {
	return &ContentController{
		Service: service,
	}
}

type itemBody struct {
	Title string                 `json:"title"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

type reviewBody struct {
	Notes string `json:"notes,omitempty"`
}

// collection returns the already-validated collection from the route. The
// authorization middleware rejected unknown values before the handler runs.
func collection(c *fiber.Ctx) permissions.Collection {
	return permissions.Collection(c.Params(middleware.CollectionParam))
}

func (ctrl *ContentController) Create(c *fiber.Ctx) error {
	var body itemBody
	if err := c.BodyParser(&body); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	item, err := ctrl.Service.CreateItem(c.UserContext(), collection(c), CreateItemInput{
		Title: body.Title,
		Data:  body.Data,
	})
	if err != nil {
		return ctrl.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "item": item})
}

func (ctrl *ContentController) Get(c *fiber.Ctx) error {
	item, err := ctrl.Service.GetItem(c.UserContext(), collection(c), c.Params("id"))
	if err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "item": item})
}

func (ctrl *ContentController) List(c *fiber.Ctx) error {
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)

	filters := ListItemFilters{
		Status: ContentStatus(c.Query("status")),
		Search: c.Query("search"),
	}

	items, total, err := ctrl.Service.ListItems(c.UserContext(), collection(c), filters, page, limit)
	if err != nil {
		return ctrl.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"items":   items,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func (ctrl *ContentController) Update(c *fiber.Ctx) error {
	var body itemBody
	if err := c.BodyParser(&body); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	item, err := ctrl.Service.UpdateItem(c.UserContext(), collection(c), c.Params("id"), UpdateItemInput{
		Title: body.Title,
		Data:  body.Data,
	})
	if err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "item": item})
}

func (ctrl *ContentController) Delete(c *fiber.Ctx) error {
	if err := ctrl.Service.DeleteItem(c.UserContext(), collection(c), c.Params("id")); err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (ctrl *ContentController) Approve(c *fiber.Ctx) error {
	var body reviewBody
	_ = c.BodyParser(&body)

	item, err := ctrl.Service.Approve(c.UserContext(), collection(c), c.Params("id"), body.Notes)
	if err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "item": item})
}

func (ctrl *ContentController) Reject(c *fiber.Ctx) error {
	var body reviewBody
	_ = c.BodyParser(&body)

	item, err := ctrl.Service.Reject(c.UserContext(), collection(c), c.Params("id"), body.Notes)
	if err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "item": item})
}

func (ctrl *ContentController) Publish(c *fiber.Ctx) error {
	item, err := ctrl.Service.Publish(c.UserContext(), collection(c), c.Params("id"))
	if err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "item": item})
}

func (ctrl *ContentController) Unpublish(c *fiber.Ctx) error {
	item, err := ctrl.Service.Unpublish(c.UserContext(), collection(c), c.Params("id"))
	if err != nil {
		return ctrl.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "item": item})
}

func (ctrl *ContentController) Export(c *fiber.Ctx) error {
	filters := ListItemFilters{
		Status: ContentStatus(c.Query("status")),
		Search: c.Query("search"),
	}

	data, filename, err := ctrl.Service.ExportToExcel(c.UserContext(), collection(c), filters)
	if err != nil {
		return ctrl.fail(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}

func (ctrl *ContentController) Import(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "500"), 10, 64)

	result, err := ctrl.Service.ImportFromFeed(c.UserContext(), collection(c), limit)
	if err != nil {
		return ctrl.fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "result": result})
}

func (ctrl *ContentController) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return utils.Fail(c, fiber.StatusNotFound, "Content item not found")
	case errors.Is(err, models.ErrConflict):
		return utils.Fail(c, fiber.StatusConflict, "Item is not in a state that allows this operation")
	case errors.Is(err, ErrSlugTaken):
		return utils.Fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrNoFeed):
		return utils.Fail(c, fiber.StatusBadRequest, err.Error())
	default:
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to process content operation")
	}
}
