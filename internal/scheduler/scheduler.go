package scheduler

import (
	"context"
	"time"

	"estate-cms/internal/features/auth"
	"estate-cms/internal/features/permreq"
	"estate-cms/internal/features/user"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Maintenance runs the recurring housekeeping jobs: sweeping expired session
// cache entries, expiring stale permission requests and pruning expired
// permission overrides.
type Maintenance struct {
	cache    auth.SessionCache
	users    user.UserService
	requests permreq.PermissionRequestService
	logger   *zap.Logger
	cron     *cron.Cron
}

func NewMaintenance(cache auth.SessionCache, users user.UserService, requests permreq.PermissionRequestService, logger *zap.Logger) *Maintenance {
	return &Maintenance{
		cache:    cache,
		users:    users,
		requests: requests,
		logger:   logger,
		cron:     cron.New(),
	}
}

func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc("@every 1m", m.sweepSessions); err != nil {
		return err
	}
	if _, err := m.cron.AddFunc("@every 5m", m.expireRequests); err != nil {
		return err
	}
	if _, err := m.cron.AddFunc("@every 10m", m.pruneOverrides); err != nil {
		return err
	}

	m.cron.Start()
	m.logger.Info("maintenance scheduler started")
	return nil
}

// Stop halts the scheduler and waits for any running job to finish.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info("maintenance scheduler stopped")
}

func (m *Maintenance) sweepSessions() {
	m.cache.Sweep()
}

func (m *Maintenance) expireRequests() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := m.requests.ExpireStalePending(ctx)
	if err != nil {
		m.logger.Error("permission request expiry sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		m.logger.Info("expired stale permission requests", zap.Int("count", count))
	}
}

func (m *Maintenance) pruneOverrides() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := m.users.PruneExpiredOverrides(ctx)
	if err != nil {
		m.logger.Error("override pruning sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		m.logger.Info("pruned expired permission overrides", zap.Int("users", count))
	}
}
