package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"estate-cms/internal/common/models"
	"estate-cms/internal/config"
	"estate-cms/internal/database"
	"estate-cms/internal/features/audit"
	"estate-cms/internal/features/user"
	"estate-cms/internal/logger"
	"estate-cms/internal/permissions"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// noopInvalidator satisfies the user service's session dependency; the seeder
// runs offline, there are no live sessions to evict.
type noopInvalidator struct{}

func (noopInvalidator) InvalidateUser(userID string) {}

// Seed creates the super admin account and one active demo user per role so a
// fresh environment is usable immediately.
func Seed(lc fx.Lifecycle, users user.UserService, userRepo user.UserRepository, logger *zap.Logger, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				ctx := context.Background()

				if err := userRepo.EnsureIndexes(ctx); err != nil {
					logger.Error("Failed to ensure user indexes", zap.Error(err))
				}

				adminEmail := envOr("SEED_ADMIN_EMAIL", "admin@estate-cms.local")
				adminPassword := envOr("SEED_ADMIN_PASSWORD", "change-me-on-first-login")

				seedUser(ctx, users, logger, user.CreateUserInput{
					Email:       adminEmail,
					DisplayName: "Super Admin",
					Password:    adminPassword,
					Role:        permissions.RoleSuperAdmin,
					Status:      models.StatusActive,
				})

				demoRoles := []permissions.Role{
					permissions.RoleAdmin,
					permissions.RoleAgent,
					permissions.RoleMarketing,
					permissions.RoleSales,
					permissions.RoleHR,
					permissions.RoleCommunityManager,
					permissions.RoleUser,
				}
				for _, role := range demoRoles {
					name := strings.ToLower(string(role))
					seedUser(ctx, users, logger, user.CreateUserInput{
						Email:       name + "@estate-cms.local",
						DisplayName: "Demo " + string(role),
						Password:    envOr("SEED_DEMO_PASSWORD", "demo-password"),
						Role:        role,
						Status:      models.StatusActive,
					})
				}

				logger.Info("Seeding complete")
			}()
			return nil
		},
	})
}

func seedUser(ctx context.Context, users user.UserService, logger *zap.Logger, input user.CreateUserInput) {
	_, err := users.CreateUser(ctx, input)
	switch {
	case err == nil:
		logger.Info("User created", zap.String("email", input.Email), zap.String("role", string(input.Role)))
	case errors.Is(err, user.ErrEmailTaken):
		logger.Info("User exists, skipping", zap.String("email", input.Email))
	default:
		logger.Error("Failed to create user", zap.String("email", input.Email), zap.Error(err))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			logger.NewLogger,

			audit.NewAuditRepository,
			audit.NewAuditService,
			user.NewUserRepository,
			user.NewUserService,

			func() user.SessionInvalidator { return noopInvalidator{} },
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
