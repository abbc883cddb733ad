package permreq

import (
	"context"
	"errors"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PermissionRequestRepository interface {
	Create(ctx context.Context, req *PermissionRequest) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*PermissionRequest, error)
	List(ctx context.Context, filter map[string]interface{}, limit int64) ([]PermissionRequest, error)
	CountByStatus(ctx context.Context) (RequestStats, error)
	FindPendingByRequester(ctx context.Context, requesterID primitive.ObjectID) ([]PermissionRequest, error)
	// ResolvePending applies the resolution fields to the request only while it
	// is still pending. The guard is part of the update filter, so two racing
	// reviews cannot both win; the loser gets models.ErrConflict.
	ResolvePending(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) (*PermissionRequest, error)
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) ([]PermissionRequest, error)
}

type PermissionRequestRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewPermissionRequestRepository(mongodb *database.MongodbDB) PermissionRequestRepository {
	return &PermissionRequestRepositoryImpl{
		Collection: mongodb.DB.Collection("permission_requests"),
	}
}

func (r *PermissionRequestRepositoryImpl) Create(ctx context.Context, req *PermissionRequest) error {
	now := time.Now()
	req.Status = StatusPending
	req.CreatedAt = now
	req.UpdatedAt = now

	result, err := r.Collection.InsertOne(ctx, req)
	if err != nil {
		return err
	}
	req.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *PermissionRequestRepositoryImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*PermissionRequest, error) {
	var req PermissionRequest
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *PermissionRequestRepositoryImpl) List(ctx context.Context, filter map[string]interface{}, limit int64) ([]PermissionRequest, error) {
	query := bson.M{}
	for k, v := range filter {
		query[k] = v
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []PermissionRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *PermissionRequestRepositoryImpl) CountByStatus(ctx context.Context) (RequestStats, error) {
	var stats RequestStats

	cursor, err := r.Collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return stats, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status RequestStatus `bson:"_id"`
		Count  int64         `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return stats, err
	}

	for _, row := range rows {
		switch row.Status {
		case StatusPending:
			stats.Pending = row.Count
		case StatusApproved:
			stats.Approved = row.Count
		case StatusRejected:
			stats.Rejected = row.Count
		case StatusExpired:
			stats.Expired = row.Count
		}
		stats.Total += row.Count
	}
	return stats, nil
}

func (r *PermissionRequestRepositoryImpl) FindPendingByRequester(ctx context.Context, requesterID primitive.ObjectID) ([]PermissionRequest, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{
		"requester_id": requesterID,
		"status":       StatusPending,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []PermissionRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *PermissionRequestRepositoryImpl) ResolvePending(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) (*PermissionRequest, error) {
	set := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated PermissionRequest
	err := r.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": StatusPending},
		bson.M{"$set": set},
		opts,
	).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// The guard did not match: either the request is already resolved or it
	// never existed. Tell those apart for the caller.
	count, countErr := r.Collection.CountDocuments(ctx, bson.M{"_id": id})
	if countErr != nil {
		return nil, countErr
	}
	if count > 0 {
		return nil, models.ErrConflict
	}
	return nil, models.ErrNotFound
}

func (r *PermissionRequestRepositoryImpl) ExpirePendingBefore(ctx context.Context, cutoff time.Time) ([]PermissionRequest, error) {
	filter := bson.M{
		"status":     StatusPending,
		"created_at": bson.M{"$lt": cutoff},
	}

	cursor, err := r.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stale []PermissionRequest
	if err = cursor.All(ctx, &stale); err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, 0, len(stale))
	for _, req := range stale {
		ids = append(ids, req.ID)
	}

	// Re-apply the pending guard on the write; a request reviewed between the
	// read and this update keeps its terminal state.
	_, err = r.Collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "status": StatusPending},
		bson.M{"$set": bson.M{"status": StatusExpired, "updated_at": time.Now()}},
	)
	if err != nil {
		return nil, err
	}
	return stale, nil
}
