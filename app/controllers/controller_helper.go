package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/QuizFox/internal/pkg/billing"
)

// statusForKind maps error kinds onto HTTP status codes.
func statusForKind(kind billing.Kind) int {
	switch kind {
	case billing.KindValidation, billing.KindMalformedID:
		return fiber.StatusBadRequest
	case billing.KindAuthentication:
		return fiber.StatusUnauthorized
	case billing.KindNotFound:
		return fiber.StatusNotFound
	case billing.KindConflict:
		return fiber.StatusConflict
	case billing.KindInsufficientFunds:
		return fiber.StatusUnprocessableEntity
	case billing.KindUpstream:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err as {"error": code, "message": text}. Errors that do
// not carry a *billing.Error are logged and hidden behind a generic 500.
func writeError(c *fiber.Ctx, err error) error {
	var be *billing.Error
	if !errors.As(err, &be) {
		log.Errorf("[API] %s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Internal server error"})
	}

	message := be.Message
	if be.Kind == billing.KindValidation && be.Err != nil {
		message = be.Error()
	}
	if be.Kind == billing.KindUpstream {
		log.Warnf("[API] %s %s upstream failure: %v", c.Method(), c.Path(), err)
	}
	return c.Status(statusForKind(be.Kind)).JSON(fiber.Map{"error": be.Code, "message": message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": message})
}

// parseIDParam reads a positive numeric route parameter.
func parseIDParam(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
