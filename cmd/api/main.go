package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"estate-cms/internal/api"
	"estate-cms/internal/config"
	"estate-cms/internal/connectors"
	"estate-cms/internal/database"
	"estate-cms/internal/features/audit"
	"estate-cms/internal/features/auth"
	"estate-cms/internal/features/content"
	"estate-cms/internal/features/notification"
	"estate-cms/internal/features/permreq"
	"estate-cms/internal/features/user"
	"estate-cms/internal/logger"
	"estate-cms/internal/middleware"
	"estate-cms/internal/scheduler"
	"estate-cms/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates the Fiber app with the shared error shape and the
// global middleware every route runs behind.
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal server error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return utils.Fail(c, code, message)
		},
	})

	app.Use(recover.New())
	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute tags a constructor so Fx collects its result into the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes calls Setup on every collected route.
func RegisterAllRoutes(app *fiber.App, routes []api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer runs Fiber in a goroutine and shuts it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures the database indexes exist shortly after start.
func InitializeIndexes(lc fx.Lifecycle, users user.UserRepository, items content.ContentRepository, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := users.EnsureIndexes(ctx); err != nil {
					logger.Error("failed to ensure user indexes", zap.Error(err))
				}
				if err := items.EnsureIndexes(ctx); err != nil {
					logger.Error("failed to ensure content indexes", zap.Error(err))
				}
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			logger.NewLogger,
			NewFiberServer,

			connectors.NewLegacyFeed,

			audit.NewAuditRepository,
			user.NewUserRepository,
			permreq.NewPermissionRequestRepository,
			content.NewContentRepository,
			notification.NewNotificationRepository,

			audit.NewAuditService,
			auth.NewTokenService,
			auth.NewSessionCache,
			auth.NewSessionService,
			auth.NewAuthService,
			user.NewUserService,
			permreq.NewPermissionRequestService,
			content.NewContentService,
			notification.NewHub,
			notification.NewNotificationService,
			scheduler.NewMaintenance,

			// Interface adapters. Middleware and the user feature declare
			// narrow interfaces to avoid dependency cycles; these casts wire
			// the concrete services into them.
			func(t *utils.TokenService) auth.TokenVerifier { return t },
			func(s auth.SessionService) middleware.SessionValidator { return s },
			func(s auth.SessionService) user.SessionInvalidator { return s },
			func(s audit.AuditService) middleware.AuditWriter { return s },

			auth.NewAuthController,
			user.NewUserController,
			audit.NewAuditController,
			permreq.NewPermissionRequestController,
			content.NewContentController,
			notification.NewNotificationController,

			AsRoute(api.NewHealthApi),
			AsRoute(auth.NewAuthApi),
			AsRoute(user.NewUserApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(permreq.NewPermissionRequestApi),
			AsRoute(content.NewContentApi),
			AsRoute(notification.NewNotificationApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			RegisterAllRoutesWithAnnotation,
			StartServer,
			InitializeIndexes,
			func(lc fx.Lifecycle, maintenance *scheduler.Maintenance) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return maintenance.Start()
					},
					OnStop: func(ctx context.Context) error {
						maintenance.Stop()
						return nil
					},
				})
			},
			func(lc fx.Lifecycle, feed connectors.LegacyFeed) {
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						return feed.Close()
					},
				})
			},
		),
	)

	app.Run()
}
