package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/QuizFox/app/repository"
	"github.com/ManuelReschke/QuizFox/internal/pkg/usercontext"
)

// NotificationController lists and acknowledges in-app notifications
type NotificationController struct {
	notifications repository.NotificationRepository
}

func NewNotificationController(repo repository.NotificationRepository) *NotificationController {
	return &NotificationController{notifications: repo}
}

func (nc *NotificationController) HandleList(c *fiber.Ctx) error {
	list, err := nc.notifications.ListByUser(c.UserContext(), usercontext.GetUserID(c), c.QueryInt("limit", 0))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"notifications": list})
}

func (nc *NotificationController) HandleMarkRead(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid notification id")
	}
	err := nc.notifications.MarkRead(c.UserContext(), usercontext.GetUserID(c), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Notification not found"})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
