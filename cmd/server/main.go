package main

import (
	"strings"

	"tokopos-backend/internal/auth"
	"tokopos-backend/internal/catalog"
	"tokopos-backend/internal/config"
	"tokopos-backend/internal/database"
	"tokopos-backend/internal/inventory"
	"tokopos-backend/internal/logger"
	"tokopos-backend/internal/models"
	"tokopos-backend/internal/notification"
	"tokopos-backend/internal/payment"
	"tokopos-backend/internal/report"
	"tokopos-backend/internal/transaction"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg)
	defer zap.L().Sync() //nolint:errcheck

	database.Init(cfg)

	notification.NewService(database.DB).Register()

	gw := payment.NewHTTPGateway(cfg)
	sweeper := payment.StartSweep(cfg, gw)
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			zap.L().Error("unexpected error", zap.Error(err), zap.String("path", c.Path()))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))
	api.Post("/payments/webhook", payment.WebhookHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Catalog
	protected.Get("/products", catalog.ListProductsHandler())
	protected.Get("/products/:id", catalog.GetProductHandler())
	protected.Get("/categories", catalog.ListCategoriesHandler())

	// Checkout
	protected.Post("/transactions", transaction.CreateHandler(gw))
	protected.Get("/transactions", transaction.ListHandler())
	protected.Get("/transactions/:id", transaction.GetHandler())
	protected.Get("/transactions/:id/payment", transaction.CheckPaymentHandler(gw))

	// Notifications
	protected.Get("/notifications", notification.ListHandler())
	protected.Get("/notifications/unread-count", notification.UnreadCountHandler())
	protected.Put("/notifications/read-all", notification.MarkAllReadHandler())
	protected.Put("/notifications/:id/read", notification.MarkReadHandler())
	protected.Delete("/notifications/:id", notification.DeleteHandler())

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	// User management
	adminRoutes.Post("/users", auth.CreateUserHandler())
	adminRoutes.Get("/users", auth.ListUsersHandler())
	adminRoutes.Put("/users/:id/active", auth.SetUserActiveHandler())

	// Catalog management
	adminRoutes.Post("/products", catalog.CreateProductHandler())
	adminRoutes.Put("/products/:id", catalog.UpdateProductHandler())
	adminRoutes.Delete("/products/:id", catalog.DeleteProductHandler())
	adminRoutes.Post("/categories", catalog.CreateCategoryHandler())
	adminRoutes.Put("/categories/:id", catalog.UpdateCategoryHandler())
	adminRoutes.Delete("/categories/:id", catalog.DeleteCategoryHandler())

	// Inventory
	adminRoutes.Post("/inventory/adjustments", inventory.AdjustHandler())
	adminRoutes.Get("/inventory/logs", inventory.ListLogsHandler())

	// Payment reconciliation sweep, on demand
	adminRoutes.Post("/payments/sync", payment.SyncHandler(gw))

	// Reporting
	adminRoutes.Get("/reports/summary", report.SummaryHandler())
	adminRoutes.Get("/reports/top-products", report.TopProductsHandler())
	adminRoutes.Get("/reports/low-stock", report.LowStockHandler())
	adminRoutes.Get("/reports/export/csv", report.ExportCSVHandler())
	adminRoutes.Get("/reports/export/xlsx", report.ExportXLSXHandler())

	zap.S().Infof("server listening on port %s", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		zap.S().Fatalf("server stopped: %v", err)
	}
}
