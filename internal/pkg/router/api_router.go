package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/QuizFox/internal/pkg/middleware"
)

const (
	webhookRateLimit = 600
	apiRateLimit     = 120
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "QuizFox billing API",
		})
	})

	v1 := api.Group("/v1")

	// The gateway authenticates with the notification signature, not an API key.
	v1.Post("/payments/notification", h.limiter(webhookRateLimit, "webhook"), h.deps.Payments.HandleNotification)

	authed := v1.Group("", h.limiter(apiRateLimit, "api"), middleware.APIKeyAuthMiddleware(h.deps.Users))

	payments := authed.Group("/payments")
	payments.Get("/", h.deps.Payments.HandleListPayments)
	payments.Post("/transactions", h.deps.Payments.HandleCreateTransaction)
	payments.Post("/verify", h.deps.Payments.HandleVerify)

	aff := authed.Group("/affiliate")
	aff.Get("/", h.deps.Affiliates.HandleGetAffiliate)
	aff.Put("/referral-code", h.deps.Affiliates.HandleUpdateReferralCode)
	aff.Get("/withdrawals", h.deps.Affiliates.HandleListWithdrawals)
	aff.Post("/withdrawals", h.deps.Affiliates.HandleRequestWithdrawal)

	notifications := authed.Group("/notifications")
	notifications.Get("/", h.deps.Notifications.HandleList)
	notifications.Post("/:id/read", h.deps.Notifications.HandleMarkRead)

	admin := authed.Group("/admin", middleware.RequireAdmin)
	admin.Post("/withdrawals/:id", h.deps.Admin.HandleProcessWithdrawal)
	admin.Post("/affiliates/:id/activation", h.deps.Admin.HandleAffiliateActivation)
	admin.Get("/settings", h.deps.Admin.HandleGetSettings)
	admin.Put("/settings", h.deps.Admin.HandleUpdateSettings)
	admin.Post("/vouchers", h.deps.Admin.HandleCreateVoucher)
	admin.Get("/queue", h.deps.Admin.HandleQueueStats)
	admin.Post("/tasks/:name", h.deps.Admin.HandleRunTask)
}

// limiter allows max requests per client IP and minute. Counters live in
// the shared storage so every instance enforces the same budget.
func (h ApiRouter) limiter(max int, prefix string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		Storage:    h.deps.LimiterStorage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return prefix + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited", "message": "Too many requests"})
		},
	})
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
