package auth

import (
	"context"
	"errors"
	"time"

	"estate-cms/internal/common/models"
	"estate-cms/internal/config"
	"estate-cms/internal/features/audit"
	"estate-cms/internal/features/user"
	"estate-cms/internal/permissions"
	"estate-cms/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// LoginMeta carries the client attributes of an unauthenticated login attempt
// for audit purposes.
type LoginMeta struct {
	IP        string
	UserAgent string
}

// CollectionAccess is one row of the client-safe permission snapshot.
type CollectionAccess struct {
	Collection permissions.Collection `json:"collection"`
	SubRole    permissions.SubRole    `json:"sub_role"`
	Actions    []permissions.Action   `json:"actions"`
}

// Snapshot is what the dashboard needs to render: the same evaluator output
// the server enforces with, so client and server can never drift.
type Snapshot struct {
	ID           string             `json:"id"`
	Email        string             `json:"email"`
	DisplayName  string             `json:"display_name"`
	Role         permissions.Role   `json:"role"`
	IsAdmin      bool               `json:"is_admin"`
	IsSuperAdmin bool               `json:"is_super_admin"`
	Collections  []CollectionAccess `json:"collections"`
}

type AuthService interface {
	Login(ctx context.Context, email, password string, meta LoginMeta) (string, *models.User, error)
	Logout(ctx context.Context, token string, actor *models.User)
	Snapshot(u *models.User) Snapshot
}

type AuthServiceImpl struct {
	Users        user.UserRepository
	Tokens       *utils.TokenService
	Sessions     SessionService
	AuditService audit.AuditService
	Config       *config.Config
}

func NewAuthService(users user.UserRepository, tokens *utils.TokenService, sessions SessionService, auditService audit.AuditService, cfg *config.Config) AuthService {
	return &AuthServiceImpl{
		Users:        users,
		Tokens:       tokens,
		Sessions:     sessions,
		AuditService: auditService,
		Config:       cfg,
	}
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string, meta LoginMeta) (string, *models.User, error) {
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		s.auditFailure(ctx, email, meta, "unknown account")
		return "", nil, ErrInvalidCredentials
	}

	if u.Status != models.StatusActive {
		s.auditFailure(ctx, u.Email, meta, "account not active")
		return "", nil, models.ErrAccountInactive
	}

	now := time.Now()
	if u.Locked(now) {
		s.auditFailure(ctx, u.Email, meta, "account locked")
		return "", nil, models.ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		attempts := u.LoginAttempts + 1
		var lockedUntil *time.Time

		if attempts >= s.Config.MaxLoginAttempts {
			until := now.Add(s.Config.LockoutDuration)
			lockedUntil = &until
		}

		_ = s.Users.UpdateLoginState(ctx, u.ID, attempts, lockedUntil)

		if lockedUntil != nil {
			s.AuditService.Record(ctx, models.AuditLog{
				Action:       models.AuditAccountLocked,
				Success:      false,
				Level:        models.AuditLevelCritical,
				UserID:       u.ID.Hex(),
				UserEmail:    u.Email,
				IP:           meta.IP,
				UserAgent:    meta.UserAgent,
				Resource:     "users",
				ErrorMessage: "too many failed login attempts",
				Details:      map[string]interface{}{"attempts": attempts, "locked_until": lockedUntil},
			})
			return "", nil, models.ErrAccountLocked
		}

		s.auditFailure(ctx, u.Email, meta, "wrong password")
		return "", nil, ErrInvalidCredentials
	}

	if u.LoginAttempts > 0 || u.LockedUntil != nil {
		_ = s.Users.UpdateLoginState(ctx, u.ID, 0, nil)
	}

	token, err := s.Tokens.Generate(u.ID, u.Email)
	if err != nil {
		return "", nil, err
	}

	s.AuditService.Record(ctx, models.AuditLog{
		Action:    models.AuditLoginSuccess,
		Success:   true,
		Level:     models.AuditLevelInfo,
		UserID:    u.ID.Hex(),
		UserEmail: u.Email,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Resource:  "users",
	})

	return token, u, nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, token string, actor *models.User) {
	s.Sessions.Invalidate(token)

	s.AuditService.Record(ctx, models.AuditLog{
		Action:    models.AuditLogout,
		Success:   true,
		Level:     models.AuditLevelInfo,
		UserID:    actor.ID.Hex(),
		UserEmail: actor.Email,
		Resource:  "users",
	})
}

func (s *AuthServiceImpl) Snapshot(u *models.User) Snapshot {
	subject := u.Subject()

	snapshot := Snapshot{
		ID:           u.ID.Hex(),
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		Role:         u.FullRole,
		IsAdmin:      subject.IsAdmin(),
		IsSuperAdmin: subject.IsSuperAdmin(),
	}

	for _, collection := range subject.AccessibleCollections() {
		subRole, ok := subject.SubRoleFor(collection)
		if !ok {
			continue
		}
		snapshot.Collections = append(snapshot.Collections, CollectionAccess{
			Collection: collection,
			SubRole:    subRole,
			Actions:    subject.ActionsFor(collection),
		})
	}

	return snapshot
}

func (s *AuthServiceImpl) auditFailure(ctx context.Context, email string, meta LoginMeta, reason string) {
	s.AuditService.Record(ctx, models.AuditLog{
		Action:       models.AuditLoginFailed,
		Success:      false,
		Level:        models.AuditLevelWarning,
		UserEmail:    email,
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		Resource:     "users",
		ErrorMessage: reason,
	})
}
