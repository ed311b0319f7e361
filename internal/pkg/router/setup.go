package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/QuizFox/app/controllers"
	"github.com/ManuelReschke/QuizFox/internal/pkg/middleware"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies carries everything the routers need to register handlers.
type Dependencies struct {
	Payments      *controllers.PaymentController
	Affiliates    *controllers.AffiliateController
	Admin         *controllers.AdminController
	Notifications *controllers.NotificationController
	Users         middleware.UserLookup
	// LimiterStorage backs the rate limiters; nil keeps counters in memory.
	LimiterStorage fiber.Storage
	// HealthChecks are run by GET /health, keyed by component name.
	HealthChecks map[string]func() error
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewHttpRouter(deps.HealthChecks), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
