package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/internal/config"
	"estate-cms/internal/features/audit"
	"estate-cms/internal/permissions"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken    = errors.New("email already in use")
	ErrUnknownRole   = errors.New("unknown role")
	ErrUnknownStatus = errors.New("unknown status")
	ErrInvalidGrant  = errors.New("invalid grant")
)

// SessionInvalidator evicts cached sessions of a user after a permission-
// affecting mutation, shortening the staleness window to the next request.
type SessionInvalidator interface {
	InvalidateUser(userID string)
}

type CreateUserInput struct {
	Email       string
	DisplayName string
	Password    string
	Role        permissions.Role
	Status      models.UserStatus
}

type UserService interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, filter map[string]interface{}, page, limit int64) ([]models.User, int64, error)
	UpdateProfile(ctx context.Context, id string, displayName string) (*models.User, error)
	ChangeRole(ctx context.Context, id string, role permissions.Role) (*models.User, error)
	ChangeStatus(ctx context.Context, id string, status models.UserStatus) (*models.User, error)
	UpsertGrant(ctx context.Context, id string, grant permissions.Grant) (*models.User, error)
	RemoveGrant(ctx context.Context, id string, collection permissions.Collection) (*models.User, error)
	UpsertOverride(ctx context.Context, id string, grant permissions.Grant) (*models.User, error)
	RemoveOverride(ctx context.Context, id string, collection permissions.Collection) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	PruneExpiredOverrides(ctx context.Context) (int, error)
}

type UserServiceImpl struct {
	Repo         UserRepository
	AuditService audit.AuditService
	Sessions     SessionInvalidator
	Config       *config.Config
}

func NewUserService(repo UserRepository, auditService audit.AuditService, sessions SessionInvalidator, cfg *config.Config) UserService {
	return &UserServiceImpl{
		Repo:         repo,
		AuditService: auditService,
		Sessions:     sessions,
		Config:       cfg,
	}
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	if !permissions.ValidRole(input.Role) {
		return nil, ErrUnknownRole
	}
	if input.Status == "" {
		input.Status = models.StatusInvited
	}
	if !validStatus(input.Status) {
		return nil, ErrUnknownStatus
	}

	if existing, err := s.Repo.FindByEmail(ctx, input.Email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.Config.BcryptCost)
	if err != nil {
		return nil, err
	}

	actor := actorFrom(ctx)

	now := time.Now()
	user := &models.User{
		ID:          primitive.NewObjectID(),
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		DisplayName: input.DisplayName,
		Password:    string(hashed),
		FullRole:    input.Role,
		Status:      input.Status,
		CreatedBy:   actor.Email,
		CreatedAt:   now,
		UpdatedBy:   actor.Email,
		UpdatedAt:   now,
	}

	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.AuditService.Record(ctx, s.entry(ctx, models.AuditUserCreated, user, map[string]interface{}{
		"role":   string(user.FullRole),
		"status": string(user.Status),
	}))

	return user, nil
}

func (s *UserServiceImpl) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.Repo.FindByID(ctx, id)
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, filter map[string]interface{}, page, limit int64) ([]models.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return s.Repo.List(ctx, filter, limit, (page-1)*limit)
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, id string, displayName string) (*models.User, error) {
	return s.mutate(ctx, id, models.AuditUserUpdated, map[string]interface{}{"display_name": displayName},
		func(u *models.User) error {
			u.DisplayName = displayName
			return nil
		}, false)
}

func (s *UserServiceImpl) ChangeRole(ctx context.Context, id string, role permissions.Role) (*models.User, error) {
	if !permissions.ValidRole(role) {
		return nil, ErrUnknownRole
	}
	return s.mutate(ctx, id, models.AuditUserRoleChanged, map[string]interface{}{"new_role": string(role)},
		func(u *models.User) error {
			u.FullRole = role
			return nil
		}, true)
}

func (s *UserServiceImpl) ChangeStatus(ctx context.Context, id string, status models.UserStatus) (*models.User, error) {
	if !validStatus(status) {
		return nil, ErrUnknownStatus
	}
	return s.mutate(ctx, id, models.AuditUserStatusChanged, map[string]interface{}{"new_status": string(status)},
		func(u *models.User) error {
			u.Status = status
			return nil
		}, true)
}

func (s *UserServiceImpl) UpsertGrant(ctx context.Context, id string, grant permissions.Grant) (*models.User, error) {
	if err := validateGrant(grant); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, models.AuditPermissionsUpdated, map[string]interface{}{
		"grant_collection": string(grant.Collection),
		"grant_sub_role":   string(grant.SubRole),
	}, func(u *models.User) error {
		u.CollectionPermissions = permissions.MergeGrant(u.CollectionPermissions, grant)
		return nil
	}, true)
}

func (s *UserServiceImpl) RemoveGrant(ctx context.Context, id string, collection permissions.Collection) (*models.User, error) {
	return s.mutate(ctx, id, models.AuditPermissionsUpdated, map[string]interface{}{
		"removed_grant": string(collection),
	}, func(u *models.User) error {
		u.CollectionPermissions = removeGrant(u.CollectionPermissions, collection)
		return nil
	}, true)
}

func (s *UserServiceImpl) UpsertOverride(ctx context.Context, id string, grant permissions.Grant) (*models.User, error) {
	if err := validateGrant(grant); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, models.AuditPermissionsUpdated, map[string]interface{}{
		"override_collection": string(grant.Collection),
		"override_sub_role":   string(grant.SubRole),
	}, func(u *models.User) error {
		u.PermissionOverrides = permissions.MergeGrant(u.PermissionOverrides, grant)
		return nil
	}, true)
}

func (s *UserServiceImpl) RemoveOverride(ctx context.Context, id string, collection permissions.Collection) (*models.User, error) {
	return s.mutate(ctx, id, models.AuditPermissionsUpdated, map[string]interface{}{
		"removed_override": string(collection),
	}, func(u *models.User) error {
		u.PermissionOverrides = removeGrant(u.PermissionOverrides, collection)
		return nil
	}, true)
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, id, models.AuditUserDeleted, nil,
		func(u *models.User) error {
			u.Status = models.StatusDeleted
			return nil
		}, true)
	return err
}

// PruneExpiredOverrides drops expired override entries from every affected
// user. Invoked by the maintenance scheduler.
func (s *UserServiceImpl) PruneExpiredOverrides(ctx context.Context) (int, error) {
	now := time.Now()
	users, err := s.Repo.FindWithExpiredOverrides(ctx, now)
	if err != nil {
		return 0, err
	}

	pruned := 0
	for i := range users {
		u := &users[i]
		kept := u.PermissionOverrides[:0]
		removed := make([]string, 0)
		for _, g := range u.PermissionOverrides {
			if g.Expired(now) {
				removed = append(removed, string(g.Collection))
				continue
			}
			kept = append(kept, g)
		}
		if len(removed) == 0 {
			continue
		}
		u.PermissionOverrides = kept

		if err := s.Repo.SaveVersioned(ctx, u); err != nil {
			// Raced with a concurrent mutation; the next sweep picks it up.
			continue
		}
		pruned++
		s.Sessions.InvalidateUser(u.ID.Hex())

		s.AuditService.Record(ctx, models.AuditLog{
			Action:          models.AuditOverridesPruned,
			Success:         true,
			Level:           models.AuditLevelInfo,
			TargetUserID:    u.ID.Hex(),
			TargetUserEmail: u.Email,
			Resource:        "users",
			Details:         map[string]interface{}{"collections": removed},
		})
	}
	return pruned, nil
}

// mutate loads the user, applies fn and saves under the version guard.
// Permission-affecting mutations also evict the user's cached sessions.
func (s *UserServiceImpl) mutate(ctx context.Context, id string, action models.AuditAction, details map[string]interface{}, fn func(*models.User) error, invalidate bool) (*models.User, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(u); err != nil {
		return nil, err
	}

	actor := actorFrom(ctx)
	u.UpdatedBy = actor.Email

	if err := s.Repo.SaveVersioned(ctx, u); err != nil {
		return nil, err
	}

	if invalidate {
		s.Sessions.InvalidateUser(u.ID.Hex())
	}

	entry := s.entry(ctx, action, u, details)
	s.AuditService.Record(ctx, entry)

	return u, nil
}

func (s *UserServiceImpl) entry(ctx context.Context, action models.AuditAction, target *models.User, details map[string]interface{}) models.AuditLog {
	actor := actorFrom(ctx)
	return models.AuditLog{
		Action:          action,
		Success:         true,
		Level:           models.AuditLevelInfo,
		UserID:          actor.UserID,
		UserEmail:       actor.Email,
		TargetUserID:    target.ID.Hex(),
		TargetUserEmail: target.Email,
		IP:              actor.IPAddress,
		UserAgent:       actor.UserAgent,
		Resource:        "users",
		Details:         details,
	}
}

func actorFrom(ctx context.Context) models.AuditContext {
	if actx, ok := ctx.Value(models.AuditContextKey).(*models.AuditContext); ok && actx != nil {
		return *actx
	}
	return models.AuditContext{Email: "system", Timestamp: time.Now()}
}

func validateGrant(grant permissions.Grant) error {
	if !permissions.ValidCollection(grant.Collection) || !permissions.ValidSubRole(grant.SubRole) {
		return ErrInvalidGrant
	}
	for _, a := range grant.CustomActions {
		if !permissions.ValidAction(a) {
			return ErrInvalidGrant
		}
	}
	return nil
}

func validStatus(status models.UserStatus) bool {
	switch status {
	case models.StatusInvited, models.StatusActive, models.StatusSuspended, models.StatusDeleted:
		return true
	}
	return false
}

func removeGrant(grants []permissions.Grant, collection permissions.Collection) []permissions.Grant {
	out := grants[:0]
	for _, g := range grants {
		if g.Collection != collection {
			out = append(out, g)
		}
	}
	return out
}
