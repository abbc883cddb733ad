package content

import (
	"time"

	"estate-cms/internal/permissions"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContentStatus is the editorial state of a content item.
type ContentStatus string

const (
	StatusDraft         ContentStatus = "draft"
	StatusPendingReview ContentStatus = "pending_review"
	StatusApproved      ContentStatus = "approved"
	StatusRejected      ContentStatus = "rejected"
	StatusPublished     ContentStatus = "published"
)

// ContentItem is one record of any content collection. All collections share a
// single storage collection, discriminated by the Collection field; the free
// shape of each collection lives in Data.
type ContentItem struct {
	ID          primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Collection  permissions.Collection `bson:"collection" json:"collection"`
	Title       string                 `bson:"title" json:"title"`
	Slug        string                 `bson:"slug" json:"slug"`
	Data        map[string]interface{} `bson:"data,omitempty" json:"data,omitempty"`
	Status      ContentStatus          `bson:"status" json:"status"`
	ReviewNotes string                 `bson:"review_notes,omitempty" json:"review_notes,omitempty"`
	ReviewedBy  string                 `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	PublishedAt *time.Time             `bson:"published_at,omitempty" json:"published_at,omitempty"`
	CreatedBy   string                 `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt   time.Time              `bson:"created_at" json:"created_at"`
	UpdatedBy   string                 `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
	UpdatedAt   time.Time              `bson:"updated_at" json:"updated_at"`
	Deleted     bool                   `bson:"deleted,omitempty" json:"-"`
	DeletedAt   *time.Time             `bson:"deleted_at,omitempty" json:"-"`
}
