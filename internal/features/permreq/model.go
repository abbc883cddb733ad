package permreq

import (
	"time"

	"estate-cms/internal/permissions"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestStatus is the lifecycle state of a permission request. A request
// transitions exactly once from pending to a terminal state.
type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusApproved RequestStatus = "APPROVED"
	StatusRejected RequestStatus = "REJECTED"
	StatusExpired  RequestStatus = "EXPIRED"
)

type RequestPriority string

const (
	PriorityLow    RequestPriority = "low"
	PriorityNormal RequestPriority = "normal"
	PriorityHigh   RequestPriority = "high"
	PriorityUrgent RequestPriority = "urgent"
)

// RequestedPermission is one (collection, sub-role) pair the requester wants.
type RequestedPermission struct {
	Collection permissions.Collection `bson:"collection" json:"collection"`
	SubRole    permissions.SubRole    `bson:"sub_role" json:"sub_role"`
}

// PermissionRequest records a plea for elevated collection access. Approval
// writes the granted pairs into the requester's permission overrides; the
// granted set may be a subset of the requested one.
type PermissionRequest struct {
	ID                    primitive.ObjectID    `bson:"_id,omitempty" json:"id"`
	RequesterID           primitive.ObjectID    `bson:"requester_id" json:"requester_id"`
	RequesterEmail        string                `bson:"requester_email" json:"requester_email"`
	Permissions           []RequestedPermission `bson:"permissions" json:"permissions"`
	Message               string                `bson:"message" json:"message"`
	BusinessJustification string                `bson:"business_justification,omitempty" json:"business_justification,omitempty"`
	RequestedExpiry       *time.Time            `bson:"requested_expiry,omitempty" json:"requested_expiry,omitempty"`
	Priority              RequestPriority       `bson:"priority" json:"priority"`
	Status                RequestStatus         `bson:"status" json:"status"`
	ReviewerID            string                `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`
	ReviewerEmail         string                `bson:"reviewer_email,omitempty" json:"reviewer_email,omitempty"`
	ReviewNotes           string                `bson:"review_notes,omitempty" json:"review_notes,omitempty"`
	ReviewedAt            *time.Time            `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	GrantedPermissions    []RequestedPermission `bson:"granted_permissions,omitempty" json:"granted_permissions,omitempty"`
	GrantedExpiry         *time.Time            `bson:"granted_expiry,omitempty" json:"granted_expiry,omitempty"`
	CreatedAt             time.Time             `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time             `bson:"updated_at" json:"updated_at"`
}

// RequestStats summarizes the queue for the admin list view.
type RequestStats struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Expired  int64 `json:"expired"`
	Total    int64 `json:"total"`
}
