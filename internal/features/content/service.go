package content

import (
	"context"
	"errors"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/internal/connectors"
	"estate-cms/internal/features/audit"
	"estate-cms/internal/permissions"
	"estate-cms/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrTitleRequired = errors.New("title is required")
	ErrSlugTaken     = errors.New("an item with this slug already exists in the collection")
	ErrNoFeed        = errors.New("this collection has no legacy feed to import from")
)

type CreateItemInput struct {
	Title string
	Data  map[string]interface{}
}

type UpdateItemInput struct {
	Title string
	Data  map[string]interface{}
}

type ListItemFilters struct {
	Status ContentStatus
	Search string
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type ContentService interface {
	CreateItem(ctx context.Context, collection permissions.Collection, input CreateItemInput) (*ContentItem, error)
	GetItem(ctx context.Context, collection permissions.Collection, id string) (*ContentItem, error)
	ListItems(ctx context.Context, collection permissions.Collection, filters ListItemFilters, page, limit int64) ([]ContentItem, int64, error)
	UpdateItem(ctx context.Context, collection permissions.Collection, id string, input UpdateItemInput) (*ContentItem, error)
	DeleteItem(ctx context.Context, collection permissions.Collection, id string) error
	Approve(ctx context.Context, collection permissions.Collection, id, notes string) (*ContentItem, error)
	Reject(ctx context.Context, collection permissions.Collection, id, notes string) (*ContentItem, error)
	Publish(ctx context.Context, collection permissions.Collection, id string) (*ContentItem, error)
	Unpublish(ctx context.Context, collection permissions.Collection, id string) (*ContentItem, error)
	ExportToExcel(ctx context.Context, collection permissions.Collection, filters ListItemFilters) ([]byte, string, error)
	ImportFromFeed(ctx context.Context, collection permissions.Collection, limit int64) (*ImportResult, error)
}

type ContentServiceImpl struct {
	Repo         ContentRepository
	AuditService audit.AuditService
	Feed         connectors.LegacyFeed
	Logger       *zap.Logger
}

func NewContentService(repo ContentRepository, auditService audit.AuditService, feed connectors.LegacyFeed, logger *zap.Logger) ContentService {
	return &ContentServiceImpl{
		Repo:         repo,
		AuditService: auditService,
		Feed:         feed,
		Logger:       logger,
	}
}

func (s *ContentServiceImpl) CreateItem(ctx context.Context, collection permissions.Collection, input CreateItemInput) (*ContentItem, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}

	slug := utils.Slugify(input.Title)
	taken, err := s.Repo.SlugExists(ctx, collection, slug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlugTaken
	}

	actor := actorFrom(ctx)
	item := &ContentItem{
		Collection: collection,
		Title:      input.Title,
		Slug:       slug,
		Data:       input.Data,
		Status:     StatusDraft,
		CreatedBy:  actor.UserID,
		UpdatedBy:  actor.UserID,
	}
	if err := s.Repo.Create(ctx, item); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}

	s.record(ctx, models.AuditContentCreated, collection, item, nil)
	return item, nil
}

func (s *ContentServiceImpl) GetItem(ctx context.Context, collection permissions.Collection, id string) (*ContentItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}
	return s.Repo.GetByID(ctx, collection, oid)
}

func (s *ContentServiceImpl) ListItems(ctx context.Context, collection permissions.Collection, filters ListItemFilters, page, limit int64) ([]ContentItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	filter := make(map[string]interface{})
	if filters.Status != "" {
		filter["status"] = filters.Status
	}
	if filters.Search != "" {
		filter["title"] = map[string]interface{}{"$regex": filters.Search, "$options": "i"}
	}

	return s.Repo.List(ctx, collection, filter, limit, (page-1)*limit)
}

func (s *ContentServiceImpl) UpdateItem(ctx context.Context, collection permissions.Collection, id string, input UpdateItemInput) (*ContentItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}

	actor := actorFrom(ctx)
	fields := map[string]interface{}{"updated_by": actor.UserID}
	if input.Title != "" {
		fields["title"] = input.Title
	}
	if input.Data != nil {
		fields["data"] = input.Data
	}

	updated, err := s.Repo.Update(ctx, &ContentItem{ID: oid, Collection: collection}, fields)
	if err != nil {
		return nil, err
	}

	s.record(ctx, models.AuditContentUpdated, collection, updated, nil)
	return updated, nil
}

func (s *ContentServiceImpl) DeleteItem(ctx context.Context, collection permissions.Collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrNotFound
	}

	actor := actorFrom(ctx)
	if err := s.Repo.SoftDelete(ctx, collection, oid, actor.UserID); err != nil {
		return err
	}

	s.record(ctx, models.AuditContentDeleted, collection, &ContentItem{ID: oid, Collection: collection}, nil)
	return nil
}

func (s *ContentServiceImpl) Approve(ctx context.Context, collection permissions.Collection, id, notes string) (*ContentItem, error) {
	return s.transition(ctx, collection, id, models.AuditContentApproved,
		[]ContentStatus{StatusDraft, StatusPendingReview},
		map[string]interface{}{
			"status":       StatusApproved,
			"review_notes": notes,
			"reviewed_by":  actorFrom(ctx).UserID,
		})
}

func (s *ContentServiceImpl) Reject(ctx context.Context, collection permissions.Collection, id, notes string) (*ContentItem, error) {
	return s.transition(ctx, collection, id, models.AuditContentRejected,
		[]ContentStatus{StatusDraft, StatusPendingReview},
		map[string]interface{}{
			"status":       StatusRejected,
			"review_notes": notes,
			"reviewed_by":  actorFrom(ctx).UserID,
		})
}

func (s *ContentServiceImpl) Publish(ctx context.Context, collection permissions.Collection, id string) (*ContentItem, error) {
	now := time.Now()
	return s.transition(ctx, collection, id, models.AuditContentPublished,
		[]ContentStatus{StatusApproved},
		map[string]interface{}{
			"status":       StatusPublished,
			"published_at": now,
		})
}

func (s *ContentServiceImpl) Unpublish(ctx context.Context, collection permissions.Collection, id string) (*ContentItem, error) {
	return s.transition(ctx, collection, id, models.AuditContentUnpublished,
		[]ContentStatus{StatusPublished},
		map[string]interface{}{
			"status":       StatusApproved,
			"published_at": nil,
		})
}

// ImportFromFeed pulls rows from the legacy listings feed and creates draft
// items for them. Rows without a usable title, or whose slug already exists,
// are skipped rather than failing the whole run.
func (s *ContentServiceImpl) ImportFromFeed(ctx context.Context, collection permissions.Collection, limit int64) (*ImportResult, error) {
	table, ok := connectors.FeedTable(string(collection))
	if !ok {
		return nil, ErrNoFeed
	}

	rows, err := s.Feed.FetchRows(ctx, table, limit)
	if err != nil {
		return nil, err
	}

	actor := actorFrom(ctx)
	result := &ImportResult{}
	for _, row := range rows {
		title := stringField(row, "title", "name")
		if title == "" {
			result.Skipped++
			continue
		}

		slug := utils.Slugify(title)
		taken, err := s.Repo.SlugExists(ctx, collection, slug)
		if err != nil {
			return nil, err
		}
		if taken {
			result.Skipped++
			continue
		}

		item := &ContentItem{
			Collection: collection,
			Title:      title,
			Slug:       slug,
			Data:       row,
			Status:     StatusDraft,
			CreatedBy:  actor.UserID,
			UpdatedBy:  actor.UserID,
		}
		if err := s.Repo.Create(ctx, item); err != nil {
			s.Logger.Warn("feed row import failed",
				zap.String("collection", string(collection)),
				zap.String("slug", slug),
				zap.Error(err))
			result.Skipped++
			continue
		}
		result.Imported++
	}

	s.record(ctx, models.AuditContentImported, collection, nil, map[string]interface{}{
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"table":    table,
	})
	return result, nil
}

func (s *ContentServiceImpl) transition(ctx context.Context, collection permissions.Collection, id string, action models.AuditAction, from []ContentStatus, fields map[string]interface{}) (*ContentItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}

	updated, err := s.Repo.Transition(ctx, collection, oid, from, fields)
	if err != nil {
		return nil, err
	}

	s.record(ctx, action, collection, updated, nil)
	return updated, nil
}

func (s *ContentServiceImpl) record(ctx context.Context, action models.AuditAction, collection permissions.Collection, item *ContentItem, details map[string]interface{}) {
	actor := actorFrom(ctx)
	if details == nil {
		details = make(map[string]interface{})
	}
	if item != nil {
		details["item_id"] = item.ID.Hex()
		if item.Slug != "" {
			details["slug"] = item.Slug
		}
	}

	s.AuditService.Record(ctx, models.AuditLog{
		Action:    action,
		Success:   true,
		Level:     models.AuditLevelInfo,
		UserID:    actor.UserID,
		UserEmail: actor.Email,
		IP:        actor.IPAddress,
		UserAgent: actor.UserAgent,
		Resource:  string(collection),
		Details:   details,
	})
}

func actorFrom(ctx context.Context) models.AuditContext {
	if actx, ok := ctx.Value(models.AuditContextKey).(*models.AuditContext); ok && actx != nil {
		return *actx
	}
	return models.AuditContext{UserID: "system", Timestamp: time.Now()}
}

func stringField(row map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := row[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
