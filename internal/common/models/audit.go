package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditLevel is the severity of an audit entry.
type AuditLevel string

const (
	AuditLevelInfo     AuditLevel = "INFO"
	AuditLevelWarning  AuditLevel = "WARNING"
	AuditLevelError    AuditLevel = "ERROR"
	AuditLevelCritical AuditLevel = "CRITICAL"
)

// AuditAction tags of the closed set written by this system.
type AuditAction string

const (
	AuditLoginSuccess        AuditAction = "LOGIN_SUCCESS"
	AuditLoginFailed         AuditAction = "LOGIN_FAILED"
	AuditAccountLocked       AuditAction = "ACCOUNT_LOCKED"
	AuditLogout              AuditAction = "LOGOUT"
	AuditUnauthorizedAccess  AuditAction = "UNAUTHORIZED_ACCESS_ATTEMPT"
	AuditUserCreated         AuditAction = "USER_CREATED"
	AuditUserUpdated         AuditAction = "USER_UPDATED"
	AuditUserRoleChanged     AuditAction = "USER_ROLE_CHANGED"
	AuditUserStatusChanged   AuditAction = "USER_STATUS_CHANGED"
	AuditUserDeleted         AuditAction = "USER_DELETED"
	AuditPermissionsUpdated  AuditAction = "PERMISSIONS_UPDATED"
	AuditOverridesPruned     AuditAction = "OVERRIDES_PRUNED"
	AuditPermReqCreated      AuditAction = "PERMISSION_REQUEST_CREATED"
	AuditPermReqApproved     AuditAction = "PERMISSION_REQUEST_APPROVED"
	AuditPermReqRejected     AuditAction = "PERMISSION_REQUEST_REJECTED"
	AuditPermReqExpired      AuditAction = "PERMISSION_REQUEST_EXPIRED"
	AuditContentCreated      AuditAction = "CONTENT_CREATED"
	AuditContentUpdated      AuditAction = "CONTENT_UPDATED"
	AuditContentDeleted      AuditAction = "CONTENT_DELETED"
	AuditContentPublished    AuditAction = "CONTENT_PUBLISHED"
	AuditContentUnpublished  AuditAction = "CONTENT_UNPUBLISHED"
	AuditContentApproved     AuditAction = "CONTENT_APPROVED"
	AuditContentRejected     AuditAction = "CONTENT_REJECTED"
	AuditContentExported     AuditAction = "CONTENT_EXPORTED"
	AuditContentImported     AuditAction = "CONTENT_IMPORTED"
	AuditTrailExported       AuditAction = "AUDIT_TRAIL_EXPORTED"
)

// AuditLog is an immutable record of an authorization decision, a permission
// request lifecycle transition, or an administrative mutation. Created once,
// never updated or deleted through normal operation.
type AuditLog struct {
	ID              primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Action          AuditAction            `bson:"action" json:"action"`
	Success         bool                   `bson:"success" json:"success"`
	Level           AuditLevel             `bson:"level" json:"level"`
	UserID          string                 `bson:"user_id,omitempty" json:"user_id,omitempty"`
	UserEmail       string                 `bson:"user_email,omitempty" json:"user_email,omitempty"`
	TargetUserID    string                 `bson:"target_user_id,omitempty" json:"target_user_id,omitempty"`
	TargetUserEmail string                 `bson:"target_user_email,omitempty" json:"target_user_email,omitempty"`
	IP              string                 `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent       string                 `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	Resource        string                 `bson:"resource,omitempty" json:"resource,omitempty"`
	ErrorMessage    string                 `bson:"error_message,omitempty" json:"error_message,omitempty"`
	Details         map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
	Timestamp       time.Time              `bson:"timestamp" json:"timestamp"`
}
