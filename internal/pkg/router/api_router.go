package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/fxpiphub/signalhub/app/controllers"
	"github.com/fxpiphub/signalhub/internal/pkg/billing"
	"github.com/fxpiphub/signalhub/internal/pkg/constants"
	"github.com/fxpiphub/signalhub/internal/pkg/content"
	"github.com/fxpiphub/signalhub/internal/pkg/database"
	"github.com/fxpiphub/signalhub/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	db := database.GetDB()
	repo := billing.NewRepository(db)
	service := billing.NewServiceFromDB(db)
	adapter := billing.NewStripeAdapterFromEnv()

	controllers.InitializeWebhookController(adapter, service)
	controllers.InitializeSignalsController(repo)
	controllers.InitializeAdminEventsController(repo)
	controllers.InitializeContentController(content.NewClientFromEnv())

	// The webhook route is registered on its own group with no body-parsing
	// or rate-limiting middleware: signature verification needs the exact
	// raw bytes, and Stripe's retries must not be throttled.
	webhooks := app.Group(constants.APIRoute + "/v1")
	webhooks.Post(constants.StripeWebhookRoute, controllers.HandleStripeWebhook)

	api := app.Group(constants.APIRoute, limiter.New())
	v1 := api.Group("/v1")

	v1.Get(constants.HealthRoute, func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	v1.Get(constants.SubscriptionStatusRoute, controllers.HandleSubscriptionStatus)

	v1.Get(constants.PostsRoute, controllers.HandlePosts)
	v1.Get(constants.BrokersRoute, controllers.HandleBrokers)
	v1.Get(constants.PropFirmsRoute, controllers.HandlePropFirms)

	admin := v1.Group("/admin", middleware.AdminAPIKeyMiddleware())
	admin.Get("/webhook-events", controllers.HandleAdminWebhookEvents)
	admin.Get("/webhook-stats", controllers.HandleAdminWebhookStats)
	admin.Post("/content/refresh", controllers.HandleContentRefresh)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
