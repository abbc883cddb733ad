package content

import (
	"context"
	"testing"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/internal/features/audit"
	"estate-cms/internal/permissions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memContentRepo struct {
	items map[primitive.ObjectID]*ContentItem
}

func newMemContentRepo() *memContentRepo {
	return &memContentRepo{items: make(map[primitive.ObjectID]*ContentItem)}
}

func (m *memContentRepo) Create(ctx context.Context, item *ContentItem) error {
	taken, _ := m.SlugExists(ctx, item.Collection, item.Slug)
	if taken {
		return models.ErrConflict
	}
	item.ID = primitive.NewObjectID()
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	clone := *item
	m.items[item.ID] = &clone
	return nil
}

func (m *memContentRepo) GetByID(ctx context.Context, collection permissions.Collection, id primitive.ObjectID) (*ContentItem, error) {
	item, ok := m.items[id]
	if !ok || item.Collection != collection || item.Deleted {
		return nil, models.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (m *memContentRepo) List(ctx context.Context, collection permissions.Collection, filter map[string]interface{}, limit, offset int64) ([]ContentItem, int64, error) {
	var out []ContentItem
	for _, item := range m.items {
		if item.Collection != collection || item.Deleted {
			continue
		}
		if status, ok := filter["status"]; ok && item.Status != status.(ContentStatus) {
			continue
		}
		out = append(out, *item)
	}
	return out, int64(len(out)), nil
}

func (m *memContentRepo) Update(ctx context.Context, ref *ContentItem, fields map[string]interface{}) (*ContentItem, error) {
	item, ok := m.items[ref.ID]
	if !ok || item.Collection != ref.Collection || item.Deleted {
		return nil, models.ErrNotFound
	}
	applyFields(item, fields)
	item.UpdatedAt = time.Now()
	clone := *item
	return &clone, nil
}

func (m *memContentRepo) Transition(ctx context.Context, collection permissions.Collection, id primitive.ObjectID, from []ContentStatus, fields map[string]interface{}) (*ContentItem, error) {
	item, ok := m.items[id]
	if !ok || item.Collection != collection || item.Deleted {
		return nil, models.ErrNotFound
	}
	allowed := false
	for _, status := range from {
		if item.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, models.ErrConflict
	}
	applyFields(item, fields)
	item.UpdatedAt = time.Now()
	clone := *item
	return &clone, nil
}

func (m *memContentRepo) SoftDelete(ctx context.Context, collection permissions.Collection, id primitive.ObjectID, deletedBy string) error {
	item, ok := m.items[id]
	if !ok || item.Collection != collection || item.Deleted {
		return models.ErrNotFound
	}
	item.Deleted = true
	return nil
}

func (m *memContentRepo) SlugExists(ctx context.Context, collection permissions.Collection, slug string) (bool, error) {
	for _, item := range m.items {
		if item.Collection == collection && item.Slug == slug && !item.Deleted {
			return true, nil
		}
	}
	return false, nil
}

func (m *memContentRepo) EnsureIndexes(ctx context.Context) error { return nil }

func applyFields(item *ContentItem, fields map[string]interface{}) {
	for k, v := range fields {
		switch k {
		case "status":
			item.Status = v.(ContentStatus)
		case "title":
			item.Title = v.(string)
		case "data":
			item.Data = v.(map[string]interface{})
		case "review_notes":
			item.ReviewNotes = v.(string)
		case "reviewed_by":
			item.ReviewedBy = v.(string)
		case "updated_by":
			item.UpdatedBy = v.(string)
		case "published_at":
			if v == nil {
				item.PublishedAt = nil
			} else {
				at := v.(time.Time)
				item.PublishedAt = &at
			}
		}
	}
}

type recordingAudit struct {
	audit.AuditService
	entries []models.AuditLog
}

func (r *recordingAudit) Record(ctx context.Context, entry models.AuditLog) {
	r.entries = append(r.entries, entry)
}

type fakeFeed struct {
	rows []map[string]interface{}
}

func (f *fakeFeed) FetchRows(ctx context.Context, table string, limit int64) ([]map[string]interface{}, error) {
	return f.rows, nil
}

func (f *fakeFeed) TestConnection(ctx context.Context) error { return nil }
func (f *fakeFeed) Close() error                             { return nil }

func newContentService(repo ContentRepository, feed *fakeFeed) (ContentService, *recordingAudit) {
	auditSvc := &recordingAudit{}
	if feed == nil {
		feed = &fakeFeed{}
	}
	return NewContentService(repo, auditSvc, feed, zap.NewNop()), auditSvc
}

func TestCreateItemSlugAndStatus(t *testing.T) {
	svc, auditSvc := newContentService(newMemContentRepo(), nil)

	item, err := svc.CreateItem(context.Background(), permissions.CollectionBlogs, CreateItemInput{
		Title: "Dubai Marina: Market Update Q3",
	})
	require.NoError(t, err)

	assert.Equal(t, "dubai-marina-market-update-q3", item.Slug)
	assert.Equal(t, StatusDraft, item.Status)
	require.Len(t, auditSvc.entries, 1)
	assert.Equal(t, models.AuditContentCreated, auditSvc.entries[0].Action)

	_, err = svc.CreateItem(context.Background(), permissions.CollectionBlogs, CreateItemInput{
		Title: "Dubai Marina market update   Q3",
	})
	assert.ErrorIs(t, err, ErrSlugTaken)

	// Same slug is fine in a different collection.
	_, err = svc.CreateItem(context.Background(), permissions.CollectionNews, CreateItemInput{
		Title: "Dubai Marina: Market Update Q3",
	})
	assert.NoError(t, err)
}

func TestCreateItemRequiresTitle(t *testing.T) {
	svc, _ := newContentService(newMemContentRepo(), nil)

	_, err := svc.CreateItem(context.Background(), permissions.CollectionBlogs, CreateItemInput{})
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestPublishRequiresApproval(t *testing.T) {
	repo := newMemContentRepo()
	svc, _ := newContentService(repo, nil)

	item, err := svc.CreateItem(context.Background(), permissions.CollectionBlogs, CreateItemInput{Title: "Draft post"})
	require.NoError(t, err)

	_, err = svc.Publish(context.Background(), permissions.CollectionBlogs, item.ID.Hex())
	assert.ErrorIs(t, err, models.ErrConflict)

	approved, err := svc.Approve(context.Background(), permissions.CollectionBlogs, item.ID.Hex(), "looks good")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, "looks good", approved.ReviewNotes)

	published, err := svc.Publish(context.Background(), permissions.CollectionBlogs, item.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, published.Status)
	assert.NotNil(t, published.PublishedAt)

	unpublished, err := svc.Unpublish(context.Background(), permissions.CollectionBlogs, item.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, unpublished.Status)
	assert.Nil(t, unpublished.PublishedAt)
}

func TestRejectedItemCannotBePublished(t *testing.T) {
	repo := newMemContentRepo()
	svc, _ := newContentService(repo, nil)

	item, err := svc.CreateItem(context.Background(), permissions.CollectionBlogs, CreateItemInput{Title: "Contested post"})
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), permissions.CollectionBlogs, item.ID.Hex(), "needs sources")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)

	_, err = svc.Publish(context.Background(), permissions.CollectionBlogs, item.ID.Hex())
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = svc.Approve(context.Background(), permissions.CollectionBlogs, item.ID.Hex(), "")
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestDeleteHidesItem(t *testing.T) {
	repo := newMemContentRepo()
	svc, _ := newContentService(repo, nil)

	item, err := svc.CreateItem(context.Background(), permissions.CollectionBlogs, CreateItemInput{Title: "Ephemeral"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteItem(context.Background(), permissions.CollectionBlogs, item.ID.Hex()))

	_, err = svc.GetItem(context.Background(), permissions.CollectionBlogs, item.ID.Hex())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestImportFromFeed(t *testing.T) {
	repo := newMemContentRepo()
	feed := &fakeFeed{rows: []map[string]interface{}{
		{"title": "Palm Tower Residence", "price": 2400000},
		{"name": "Bay Square Offices"},
		{"price": 100000},
	}}
	svc, auditSvc := newContentService(repo, feed)

	// Pre-existing item collides with the first feed row.
	_, err := svc.CreateItem(context.Background(), permissions.CollectionProperties, CreateItemInput{Title: "Palm Tower Residence"})
	require.NoError(t, err)

	result, err := svc.ImportFromFeed(context.Background(), permissions.CollectionProperties, 100)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Skipped)

	items, _, err := svc.ListItems(context.Background(), permissions.CollectionProperties, ListItemFilters{}, 1, 50)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	var imported int
	for _, entry := range auditSvc.entries {
		if entry.Action == models.AuditContentImported {
			imported++
		}
	}
	assert.Equal(t, 1, imported)
}

func TestImportRequiresFeedTable(t *testing.T) {
	svc, _ := newContentService(newMemContentRepo(), nil)

	_, err := svc.ImportFromFeed(context.Background(), permissions.CollectionBlogs, 100)
	assert.ErrorIs(t, err, ErrNoFeed)
}
