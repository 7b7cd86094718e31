package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hookline/hookline/app/controllers"
	"github.com/hookline/hookline/internal/pkg/ai"
	"github.com/hookline/hookline/internal/pkg/cache"
	"github.com/hookline/hookline/internal/pkg/dispatch"
	"github.com/hookline/hookline/internal/pkg/env"
	"github.com/hookline/hookline/internal/pkg/line"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	lineClient := line.NewClientFromEnv()

	opts := dispatch.Options{
		AdminUserID:   env.GetEnv("ADMIN_USER_ID", ""),
		ForwardUserID: env.GetEnv("FORWARD_USER_ID", ""),
		AdminRouting:  env.GetEnv("FEATURE_ADMIN_ROUTING", "true") == "true",
		Forwarding:    env.GetEnv("FEATURE_FORWARDING", "true") == "true",
		AIReply:       env.GetEnv("FEATURE_AI_REPLY", "true") == "true",
	}

	chat := controllers.NewWebhookController(
		lineClient,
		lineClient,
		ai.NewClientFromEnv(),
		cache.NewNameCache(),
		opts,
		env.GetEnv("LINE_CHANNEL_SECRET", ""),
	)
	order := controllers.NewOrderController(env.GetEnv("ORDER_WEBHOOK_SECRET", ""))

	app.Post("/webhook/line", chat.HandleChatEvents)
	app.Post("/webhook/orders", order.HandleOrderEvent)
	app.Get("/healthz", controllers.HandleHealth)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
