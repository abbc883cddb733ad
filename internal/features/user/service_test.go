package user

import (
	"context"
	"testing"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/internal/config"
	"estate-cms/internal/features/audit"
	"estate-cms/internal/permissions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type memUserRepo struct {
	users map[string]*models.User
}

func newMemUserRepo(users ...*models.User) *memUserRepo {
	r := &memUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		r.users[u.ID.Hex()] = u
	}
	return r
}

func (r *memUserRepo) Create(ctx context.Context, u *models.User) error {
	r.users[u.ID.Hex()] = u
	return nil
}

func (r *memUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memUserRepo) List(ctx context.Context, filter map[string]interface{}, limit, offset int64) ([]models.User, int64, error) {
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *memUserRepo) FindByRoles(ctx context.Context, roles []permissions.Role) ([]models.User, error) {
	var out []models.User
	for _, u := range r.users {
		for _, role := range roles {
			if u.FullRole == role {
				out = append(out, *u)
			}
		}
	}
	return out, nil
}

func (r *memUserRepo) SaveVersioned(ctx context.Context, u *models.User) error {
	stored, ok := r.users[u.ID.Hex()]
	if !ok || stored.Version != u.Version {
		return models.ErrVersionMismatch
	}
	u.Version++
	u.UpdatedAt = time.Now()
	clone := *u
	r.users[u.ID.Hex()] = &clone
	return nil
}

func (r *memUserRepo) UpdateLoginState(ctx context.Context, id primitive.ObjectID, attempts int, lockedUntil *time.Time) error {
	return nil
}

func (r *memUserRepo) FindWithExpiredOverrides(ctx context.Context, now time.Time) ([]models.User, error) {
	var out []models.User
	for _, u := range r.users {
		for _, g := range u.PermissionOverrides {
			if g.Expired(now) {
				out = append(out, *u)
				break
			}
		}
	}
	return out, nil
}

func (r *memUserRepo) EnsureIndexes(ctx context.Context) error { return nil }

type recordingAudit struct {
	audit.AuditService
	entries []models.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, entry models.AuditLog) {
	a.entries = append(a.entries, entry)
}

type recordingInvalidator struct {
	evicted []string
}

func (r *recordingInvalidator) InvalidateUser(userID string) {
	r.evicted = append(r.evicted, userID)
}

func testService(repo *memUserRepo) (*UserServiceImpl, *recordingAudit, *recordingInvalidator) {
	auditor := &recordingAudit{}
	sessions := &recordingInvalidator{}
	svc := &UserServiceImpl{
		Repo:         repo,
		AuditService: auditor,
		Sessions:     sessions,
		Config:       &config.Config{BcryptCost: bcrypt.MinCost},
	}
	return svc, auditor, sessions
}

func activeUser(role permissions.Role) *models.User {
	return &models.User{
		ID:       primitive.NewObjectID(),
		Email:    "someone@example.com",
		FullRole: role,
		Status:   models.StatusActive,
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	existing := activeUser(permissions.RoleAgent)
	svc, _, _ := testService(newMemUserRepo(existing))

	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email:       existing.Email,
		DisplayName: "Dup",
		Password:    "secret",
		Role:        permissions.RoleAgent,
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc, _, _ := testService(newMemUserRepo())

	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email:    "new@example.com",
		Password: "secret",
		Role:     permissions.Role("JANITOR"),
	})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestUpsertOverrideEvictsSessionsAndAudits(t *testing.T) {
	target := activeUser(permissions.RoleAgent)
	repo := newMemUserRepo(target)
	svc, auditor, sessions := testService(repo)

	updated, err := svc.UpsertOverride(context.Background(), target.ID.Hex(), permissions.Grant{
		Collection: permissions.CollectionBlogs,
		SubRole:    permissions.SubRoleModerator,
	})
	require.NoError(t, err)

	assert.True(t, updated.Subject().CanPerform(permissions.CollectionBlogs, permissions.ActionApprove))
	assert.Equal(t, []string{target.ID.Hex()}, sessions.evicted)
	require.Len(t, auditor.entries, 1)
	assert.Equal(t, models.AuditPermissionsUpdated, auditor.entries[0].Action)
	assert.Equal(t, target.ID.Hex(), auditor.entries[0].TargetUserID)
}

func TestUpsertOverrideReplacesGrantOnSameCollection(t *testing.T) {
	target := activeUser(permissions.RoleAgent)
	target.PermissionOverrides = []permissions.Grant{
		{Collection: permissions.CollectionBlogs, SubRole: permissions.SubRoleCollectionAdmin},
	}
	repo := newMemUserRepo(target)
	svc, _, _ := testService(repo)

	updated, err := svc.UpsertOverride(context.Background(), target.ID.Hex(), permissions.Grant{
		Collection: permissions.CollectionBlogs,
		SubRole:    permissions.SubRoleObserver,
	})
	require.NoError(t, err)

	require.Len(t, updated.PermissionOverrides, 1)
	assert.Equal(t, permissions.SubRoleObserver, updated.PermissionOverrides[0].SubRole)
	assert.False(t, updated.Subject().CanPerform(permissions.CollectionBlogs, permissions.ActionEdit))
}

func TestUpsertOverrideRejectsInvalidGrant(t *testing.T) {
	target := activeUser(permissions.RoleAgent)
	svc, _, sessions := testService(newMemUserRepo(target))

	_, err := svc.UpsertOverride(context.Background(), target.ID.Hex(), permissions.Grant{
		Collection: permissions.Collection("gossip"),
		SubRole:    permissions.SubRoleObserver,
	})
	assert.ErrorIs(t, err, ErrInvalidGrant)
	assert.Empty(t, sessions.evicted)
}

func TestSaveVersionedGuardsConcurrentWrites(t *testing.T) {
	target := activeUser(permissions.RoleAgent)
	repo := newMemUserRepo(target)
	svc, _, _ := testService(repo)

	stale, err := repo.FindByID(context.Background(), target.ID.Hex())
	require.NoError(t, err)

	_, err = svc.ChangeRole(context.Background(), target.ID.Hex(), permissions.RoleMarketing)
	require.NoError(t, err)

	// The copy read before the role change now carries an outdated version.
	err = repo.SaveVersioned(context.Background(), stale)
	assert.ErrorIs(t, err, models.ErrVersionMismatch)
}

func TestPruneExpiredOverrides(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	target := activeUser(permissions.RoleAgent)
	target.PermissionOverrides = []permissions.Grant{
		{Collection: permissions.CollectionBlogs, SubRole: permissions.SubRoleModerator, ExpiresAt: &past},
		{Collection: permissions.CollectionNews, SubRole: permissions.SubRoleObserver, ExpiresAt: &future},
	}
	repo := newMemUserRepo(target)
	svc, auditor, sessions := testService(repo)

	pruned, err := svc.PruneExpiredOverrides(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	stored, err := repo.FindByID(context.Background(), target.ID.Hex())
	require.NoError(t, err)
	require.Len(t, stored.PermissionOverrides, 1)
	assert.Equal(t, permissions.CollectionNews, stored.PermissionOverrides[0].Collection)
	assert.Equal(t, []string{target.ID.Hex()}, sessions.evicted)
	require.Len(t, auditor.entries, 1)
	assert.Equal(t, models.AuditOverridesPruned, auditor.entries[0].Action)
}
