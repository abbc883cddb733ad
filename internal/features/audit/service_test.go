package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	common_models "estate-cms/internal/common/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memAuditRepo struct {
	entries []common_models.AuditLog
	err     error
}

func (r *memAuditRepo) Create(ctx context.Context, entry common_models.AuditLog) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memAuditRepo) List(ctx context.Context, filters map[string]interface{}, limit, offset int64) ([]common_models.AuditLog, int64, error) {
	out := make([]common_models.AuditLog, 0, len(r.entries))
	for _, e := range r.entries {
		if action, ok := filters["action"].(string); ok && string(e.Action) != action {
			continue
		}
		if success, ok := filters["success"].(bool); ok && e.Success != success {
			continue
		}
		out = append(out, e)
	}
	total := int64(len(out))
	if offset < int64(len(out)) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func TestRecordFillsDefaults(t *testing.T) {
	repo := &memAuditRepo{}
	svc := NewAuditService(repo, zap.NewNop())

	svc.Record(context.Background(), common_models.AuditLog{
		Action:  common_models.AuditUnauthorizedAccess,
		Success: false,
	})

	require.Len(t, repo.entries, 1)
	assert.Equal(t, common_models.AuditLevelInfo, repo.entries[0].Level)
	assert.False(t, repo.entries[0].Timestamp.IsZero())
}

func TestRecordSurvivesWriteFailure(t *testing.T) {
	repo := &memAuditRepo{err: errors.New("connection reset")}
	svc := NewAuditService(repo, zap.NewNop())

	// Must not panic and must not propagate the error to the caller.
	svc.Record(context.Background(), common_models.AuditLog{
		Action: common_models.AuditLoginSuccess,
	})

	assert.Empty(t, repo.entries)
}

func TestRecordWritesEvenWhenRequestContextIsCancelled(t *testing.T) {
	repo := &memAuditRepo{}
	svc := NewAuditService(repo, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Record(ctx, common_models.AuditLog{Action: common_models.AuditLoginFailed})

	require.Len(t, repo.entries, 1)
}

func TestListLogsClampsPagination(t *testing.T) {
	repo := &memAuditRepo{}
	for i := 0; i < 3; i++ {
		repo.entries = append(repo.entries, common_models.AuditLog{
			Action:    common_models.AuditLoginSuccess,
			Success:   true,
			Timestamp: time.Now(),
		})
	}
	svc := NewAuditService(repo, zap.NewNop())

	logs, total, err := svc.ListLogs(context.Background(), ListFilters{}, 0, -5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, logs, 3)
}

func TestListLogsAppliesFilters(t *testing.T) {
	repo := &memAuditRepo{}
	repo.entries = append(repo.entries,
		common_models.AuditLog{Action: common_models.AuditLoginSuccess, Success: true},
		common_models.AuditLog{Action: common_models.AuditUnauthorizedAccess, Success: false},
		common_models.AuditLog{Action: common_models.AuditUnauthorizedAccess, Success: false},
	)
	svc := NewAuditService(repo, zap.NewNop())

	denied := false
	logs, total, err := svc.ListLogs(context.Background(), ListFilters{
		Action:  string(common_models.AuditUnauthorizedAccess),
		Success: &denied,
	}, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, logs, 2)
}
