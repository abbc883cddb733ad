package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/internal/permissions"
	"estate-cms/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeVerifier struct {
	calls  int
	userID string
	err    error
}

func (f *fakeVerifier) Verify(token string) (*utils.SessionClaims, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &utils.SessionClaims{UserID: f.userID, Email: "agent@example.com"}, nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, u *models.User) error { return nil }
func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, models.ErrNotFound
}
func (f *fakeUserRepo) List(ctx context.Context, filter map[string]interface{}, limit, offset int64) ([]models.User, int64, error) {
	return nil, 0, nil
}
func (f *fakeUserRepo) FindByRoles(ctx context.Context, roles []permissions.Role) ([]models.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) SaveVersioned(ctx context.Context, u *models.User) error { return nil }
func (f *fakeUserRepo) UpdateLoginState(ctx context.Context, id primitive.ObjectID, attempts int, lockedUntil *time.Time) error {
	return nil
}
func (f *fakeUserRepo) FindWithExpiredOverrides(ctx context.Context, now time.Time) ([]models.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) EnsureIndexes(ctx context.Context) error { return nil }

func activeUser() *models.User {
	return &models.User{
		ID:       primitive.NewObjectID(),
		Email:    "agent@example.com",
		FullRole: permissions.RoleAgent,
		Status:   models.StatusActive,
	}
}

func TestValidateCachesWithinTTL(t *testing.T) {
	u := activeUser()
	verifier := &fakeVerifier{userID: u.ID.Hex()}
	repo := &fakeUserRepo{users: map[string]*models.User{u.ID.Hex(): u}}

	svc := NewSessionService(verifier, NewMemorySessionCache(time.Minute), repo)

	first, err := svc.Validate(context.Background(), "token-1")
	require.NoError(t, err)

	second, err := svc.Validate(context.Background(), "token-1")
	require.NoError(t, err)

	// Same snapshot, exactly one identity-provider call.
	assert.Equal(t, first, second)
	assert.Equal(t, 1, verifier.calls)
}

func TestValidateReverifiesAfterTTL(t *testing.T) {
	u := activeUser()
	verifier := &fakeVerifier{userID: u.ID.Hex()}
	repo := &fakeUserRepo{users: map[string]*models.User{u.ID.Hex(): u}}

	svc := NewSessionService(verifier, NewMemorySessionCache(10*time.Millisecond), repo)

	_, err := svc.Validate(context.Background(), "token-1")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = svc.Validate(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, 2, verifier.calls)
}

func TestValidateFailuresNeverCached(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("token expired")}
	repo := &fakeUserRepo{users: map[string]*models.User{}}

	svc := NewSessionService(verifier, NewMemorySessionCache(time.Minute), repo)

	_, err := svc.Validate(context.Background(), "bad-token")
	assert.ErrorIs(t, err, models.ErrInvalidSession)

	_, err = svc.Validate(context.Background(), "bad-token")
	assert.ErrorIs(t, err, models.ErrInvalidSession)

	// Both attempts reached the verifier: failures fall through every time.
	assert.Equal(t, 2, verifier.calls)
}

func TestValidateRejectsMissingProfile(t *testing.T) {
	verifier := &fakeVerifier{userID: primitive.NewObjectID().Hex()}
	repo := &fakeUserRepo{users: map[string]*models.User{}}

	svc := NewSessionService(verifier, NewMemorySessionCache(time.Minute), repo)

	_, err := svc.Validate(context.Background(), "token-1")
	assert.ErrorIs(t, err, models.ErrProfileNotFound)
}

func TestValidateRejectsInactiveAndLocked(t *testing.T) {
	suspended := activeUser()
	suspended.Status = models.StatusSuspended

	locked := activeUser()
	until := time.Now().Add(time.Hour)
	locked.LockedUntil = &until

	repo := &fakeUserRepo{users: map[string]*models.User{
		suspended.ID.Hex(): suspended,
		locked.ID.Hex():    locked,
	}}

	svc := NewSessionService(&fakeVerifier{userID: suspended.ID.Hex()}, NewMemorySessionCache(time.Minute), repo)
	_, err := svc.Validate(context.Background(), "token-1")
	assert.ErrorIs(t, err, models.ErrAccountInactive)

	svc = NewSessionService(&fakeVerifier{userID: locked.ID.Hex()}, NewMemorySessionCache(time.Minute), repo)
	_, err = svc.Validate(context.Background(), "token-2")
	assert.ErrorIs(t, err, models.ErrAccountLocked)
}

func TestInvalidateUserEvictsAllSessions(t *testing.T) {
	u := activeUser()
	verifier := &fakeVerifier{userID: u.ID.Hex()}
	repo := &fakeUserRepo{users: map[string]*models.User{u.ID.Hex(): u}}

	svc := NewSessionService(verifier, NewMemorySessionCache(time.Minute), repo)

	_, err := svc.Validate(context.Background(), "token-a")
	require.NoError(t, err)
	_, err = svc.Validate(context.Background(), "token-b")
	require.NoError(t, err)
	require.Equal(t, 2, verifier.calls)

	svc.InvalidateUser(u.ID.Hex())

	_, err = svc.Validate(context.Background(), "token-a")
	require.NoError(t, err)
	assert.Equal(t, 3, verifier.calls)
}

func TestMemoryCacheSweepDropsExpired(t *testing.T) {
	cache := NewMemorySessionCache(5 * time.Millisecond)
	u := activeUser()
	cache.Set("stale", u)

	time.Sleep(10 * time.Millisecond)
	cache.Sweep()

	_, ok := cache.Get("stale")
	assert.False(t, ok)
	assert.Empty(t, cache.entries)
}
