package router

import (
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

type HttpRouter struct {
	checks map[string]func() error
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", h.handleHealth)
}

// handleHealth reports 503 as soon as one dependency check fails.
func (h HttpRouter) handleHealth(c *fiber.Ctx) error {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := fiber.StatusOK
	components := fiber.Map{}
	for _, name := range names {
		if err := h.checks[name](); err != nil {
			log.Warnf("[Health] %s check failed: %v", name, err)
			components[name] = "down"
			status = fiber.StatusServiceUnavailable
			continue
		}
		components[name] = "up"
	}
	return c.Status(status).JSON(fiber.Map{"ok": status == fiber.StatusOK, "components": components})
}

func NewHttpRouter(checks map[string]func() error) *HttpRouter {
	return &HttpRouter{checks: checks}
}
