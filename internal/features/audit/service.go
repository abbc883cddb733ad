package audit

import (
	"context"
	"time"

	common_models "estate-cms/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type AuditService interface {
	// Record appends an entry. It never returns an error: audit durability
	// must not take down the primary operation. Failures land in the fallback
	// logger instead.
	Record(ctx context.Context, entry common_models.AuditLog)
	ListLogs(ctx context.Context, filters ListFilters, page, limit int64) ([]common_models.AuditLog, int64, error)
	ExportToExcel(ctx context.Context, filters ListFilters) ([]byte, string, error)
}

// ListFilters narrows an audit query. Zero values mean "no filter".
type ListFilters struct {
	Action  string
	UserID  string
	Level   string
	Success *bool
	Since   *time.Time
	Until   *time.Time
}

type AuditServiceImpl struct {
	Repo   AuditRepository
	Logger *zap.Logger
}

func NewAuditService(repo AuditRepository, logger *zap.Logger) AuditService {
	return &AuditServiceImpl{
		Repo:   repo,
		Logger: logger,
	}
}

func (s *AuditServiceImpl) Record(ctx context.Context, entry common_models.AuditLog) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Level == "" {
		entry.Level = common_models.AuditLevelInfo
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.Repo.Create(writeCtx, entry); err != nil {
		s.Logger.Error("audit write failed",
			zap.String("action", string(entry.Action)),
			zap.String("resource", entry.Resource),
			zap.Error(err),
		)
	}
}

func (s *AuditServiceImpl) ListLogs(ctx context.Context, filters ListFilters, page, limit int64) ([]common_models.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := (page - 1) * limit

	query := make(map[string]interface{})
	if filters.Action != "" {
		query["action"] = filters.Action
	}
	if filters.UserID != "" {
		query["user_id"] = filters.UserID
	}
	if filters.Level != "" {
		query["level"] = filters.Level
	}
	if filters.Success != nil {
		query["success"] = *filters.Success
	}
	if filters.Since != nil || filters.Until != nil {
		span := bson.M{}
		if filters.Since != nil {
			span["$gte"] = *filters.Since
		}
		if filters.Until != nil {
			span["$lte"] = *filters.Until
		}
		query["timestamp"] = span
	}

	return s.Repo.List(ctx, query, limit, offset)
}
