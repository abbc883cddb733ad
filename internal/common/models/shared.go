package models

import (
	"time"

	"estate-cms/internal/permissions"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	// PrincipalKey holds the resolved *User for the current request.
	PrincipalKey ContextKey = "principal"
	// AuditContextKey holds the *AuditContext for the current request.
	AuditContextKey ContextKey = "audit_context"
)

// UserStatus is the lifecycle state of a user account. Only active users may
// be authenticated into a usable session.
type UserStatus string

const (
	StatusInvited   UserStatus = "invited"
	StatusActive    UserStatus = "active"
	StatusSuspended UserStatus = "suspended"
	StatusDeleted   UserStatus = "deleted"
)

// User is the principal record. CollectionPermissions are administrator-
// assigned explicit grants; PermissionOverrides take precedence over both
// grants and role defaults and are typically time-boxed. Version guards every
// mutation (conditional update on {_id, version}).
type User struct {
	ID                    primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Email                 string              `bson:"email" json:"email"`
	DisplayName           string              `bson:"display_name" json:"display_name"`
	Password              string              `bson:"password" json:"-"`
	FullRole              permissions.Role    `bson:"full_role" json:"full_role"`
	Status                UserStatus          `bson:"status" json:"status"`
	CollectionPermissions []permissions.Grant `bson:"collection_permissions,omitempty" json:"collection_permissions,omitempty"`
	PermissionOverrides   []permissions.Grant `bson:"permission_overrides,omitempty" json:"permission_overrides,omitempty"`
	LoginAttempts         int                 `bson:"login_attempts" json:"-"`
	LockedUntil           *time.Time          `bson:"locked_until,omitempty" json:"-"`
	Version               int64               `bson:"version" json:"-"`
	CreatedBy             string              `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt             time.Time           `bson:"created_at" json:"created_at"`
	UpdatedBy             string              `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
	UpdatedAt             time.Time           `bson:"updated_at" json:"updated_at"`
}

// Subject reduces the user to the permission-bearing view consumed by the
// evaluator. Every authorization decision in the system routes through this.
func (u *User) Subject() permissions.Subject {
	return permissions.Subject{
		Role:      u.FullRole,
		Grants:    u.CollectionPermissions,
		Overrides: u.PermissionOverrides,
	}
}

// Locked reports whether the account is under a brute-force lockout.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// AuditContext is made available to business handlers after authorization so
// their own audit writes carry the actor identity.
type AuditContext struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
}

// Log is the record shape for zap entries mirrored into Mongo.
type Log struct {
	Message      string    `bson:"message"`
	Caller       string    `bson:"caller,omitempty"`
	IPAddress    string    `bson:"ip_address,omitempty"`
	LogLevel     string    `bson:"log_level"`
	AppID        string    `bson:"app_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc"`
}
