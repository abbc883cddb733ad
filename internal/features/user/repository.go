package user

import (
	"context"
	"strings"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/internal/database"
	"estate-cms/internal/permissions"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter map[string]interface{}, limit, offset int64) ([]models.User, int64, error)
	FindByRoles(ctx context.Context, roles []permissions.Role) ([]models.User, error)
	// SaveVersioned persists a mutated user under an optimistic concurrency
	// guard: the write only matches when the stored version equals the one
	// the caller read. Returns models.ErrVersionMismatch otherwise.
	SaveVersioned(ctx context.Context, user *models.User) error
	UpdateLoginState(ctx context.Context, id primitive.ObjectID, attempts int, lockedUntil *time.Time) error
	FindWithExpiredOverrides(ctx context.Context, now time.Time) ([]models.User, error)
	EnsureIndexes(ctx context.Context) error
}

type UserRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewUserRepository(mongodb *database.MongodbDB) UserRepository {
	return &UserRepositoryImpl{
		Collection: mongodb.DB.Collection("users"),
	}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	_, err := r.Collection.InsertOne(ctx, user)
	return err
}

func (r *UserRepositoryImpl) FindByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}

	var user models.User
	err = r.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.Collection.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) List(ctx context.Context, filter map[string]interface{}, limit, offset int64) ([]models.User, int64, error) {
	query := bson.M{}
	for k, v := range filter {
		query[k] = v
	}

	total, err := r.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if offset > 0 {
		opts.SetSkip(offset)
	}

	cursor, err := r.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepositoryImpl) FindByRoles(ctx context.Context, roles []permissions.Role) ([]models.User, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{
		"full_role": bson.M{"$in": roles},
		"status":    models.StatusActive,
	})
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepositoryImpl) SaveVersioned(ctx context.Context, user *models.User) error {
	filter := bson.M{"_id": user.ID, "version": user.Version}

	user.Version++
	user.UpdatedAt = time.Now()

	res, err := r.Collection.ReplaceOne(ctx, filter, user)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrVersionMismatch
	}
	return nil
}

func (r *UserRepositoryImpl) UpdateLoginState(ctx context.Context, id primitive.ObjectID, attempts int, lockedUntil *time.Time) error {
	update := bson.M{"$set": bson.M{
		"login_attempts": attempts,
		"locked_until":   lockedUntil,
		"updated_at":     time.Now(),
	}}
	_, err := r.Collection.UpdateByID(ctx, id, update)
	return err
}

func (r *UserRepositoryImpl) FindWithExpiredOverrides(ctx context.Context, now time.Time) ([]models.User, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{
		"permission_overrides": bson.M{
			"$elemMatch": bson.M{"expires_at": bson.M{"$lte": now}},
		},
	})
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
