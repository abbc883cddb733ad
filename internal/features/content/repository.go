package content

import (
	"context"
	"errors"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/internal/database"
	"estate-cms/internal/permissions"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ContentRepository interface {
	Create(ctx context.Context, item *ContentItem) error
	GetByID(ctx context.Context, collection permissions.Collection, id primitive.ObjectID) (*ContentItem, error)
	List(ctx context.Context, collection permissions.Collection, filter map[string]interface{}, limit, offset int64) ([]ContentItem, int64, error)
	Update(ctx context.Context, item *ContentItem, fields map[string]interface{}) (*ContentItem, error)
	// Transition moves the item between editorial states. The allowed source
	// states are part of the update filter; a transition from any other state
	// fails with models.ErrConflict instead of stomping a concurrent change.
	Transition(ctx context.Context, collection permissions.Collection, id primitive.ObjectID, from []ContentStatus, fields map[string]interface{}) (*ContentItem, error)
	SoftDelete(ctx context.Context, collection permissions.Collection, id primitive.ObjectID, deletedBy string) error
	SlugExists(ctx context.Context, collection permissions.Collection, slug string) (bool, error)
	EnsureIndexes(ctx context.Context) error
}

type ContentRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewContentRepository(mongodb *database.MongodbDB) ContentRepository {
	return &ContentRepositoryImpl{
		Collection: mongodb.DB.Collection("content_items"),
	}
}

func (r *ContentRepositoryImpl) Create(ctx context.Context, item *ContentItem) error {
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	result, err := r.Collection.InsertOne(ctx, item)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrConflict
		}
		return err
	}
	item.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *ContentRepositoryImpl) GetByID(ctx context.Context, collection permissions.Collection, id primitive.ObjectID) (*ContentItem, error) {
	var item ContentItem
	err := r.Collection.FindOne(ctx, r.scope(collection, bson.M{"_id": id})).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *ContentRepositoryImpl) List(ctx context.Context, collection permissions.Collection, filter map[string]interface{}, limit, offset int64) ([]ContentItem, int64, error) {
	query := r.scope(collection, bson.M{})
	for k, v := range filter {
		query[k] = v
	}

	total, err := r.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)

	cursor, err := r.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var items []ContentItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *ContentRepositoryImpl) Update(ctx context.Context, item *ContentItem, fields map[string]interface{}) (*ContentItem, error) {
	set := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated ContentItem
	err := r.Collection.FindOneAndUpdate(ctx,
		r.scope(item.Collection, bson.M{"_id": item.ID}),
		bson.M{"$set": set},
		opts,
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (r *ContentRepositoryImpl) Transition(ctx context.Context, collection permissions.Collection, id primitive.ObjectID, from []ContentStatus, fields map[string]interface{}) (*ContentItem, error) {
	set := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		set[k] = v
	}

	filter := r.scope(collection, bson.M{
		"_id":    id,
		"status": bson.M{"$in": from},
	})

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated ContentItem
	err := r.Collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	count, countErr := r.Collection.CountDocuments(ctx, r.scope(collection, bson.M{"_id": id}))
	if countErr != nil {
		return nil, countErr
	}
	if count > 0 {
		return nil, models.ErrConflict
	}
	return nil, models.ErrNotFound
}

func (r *ContentRepositoryImpl) SoftDelete(ctx context.Context, collection permissions.Collection, id primitive.ObjectID, deletedBy string) error {
	now := time.Now()
	result, err := r.Collection.UpdateOne(ctx,
		r.scope(collection, bson.M{"_id": id}),
		bson.M{"$set": bson.M{
			"deleted":    true,
			"deleted_at": now,
			"updated_by": deletedBy,
			"updated_at": now,
		}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *ContentRepositoryImpl) SlugExists(ctx context.Context, collection permissions.Collection, slug string) (bool, error) {
	count, err := r.Collection.CountDocuments(ctx, r.scope(collection, bson.M{"slug": slug}))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ContentRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "collection", Value: 1}, {Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"deleted": bson.M{"$ne": true}}),
		},
		{
			Keys: bson.D{{Key: "collection", Value: 1}, {Key: "status", Value: 1}, {Key: "updated_at", Value: -1}},
		},
	})
	return err
}

func (r *ContentRepositoryImpl) scope(collection permissions.Collection, query bson.M) bson.M {
	query["collection"] = collection
	query["deleted"] = bson.M{"$ne": true}
	return query
}
