package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/QuizFox/internal/pkg/billing"
	"github.com/ManuelReschke/QuizFox/internal/pkg/usercontext"
)

// PaymentController serves checkout, verification and the gateway webhook
type PaymentController struct {
	billing *billing.Service
}

func NewPaymentController(svc *billing.Service) *PaymentController {
	return &PaymentController{billing: svc}
}

// HandleNotification is the gateway webhook. Anything the service accepts,
// including replays, stale reports and unknown orders, is acknowledged with
// {"ok": true} so the gateway stops redelivering.
func (pc *PaymentController) HandleNotification(c *fiber.Ctx) error {
	var n billing.Notification
	if err := c.BodyParser(&n); err != nil {
		return badRequest(c, "Invalid notification body")
	}

	payload := append([]byte(nil), c.Body()...)
	if _, err := pc.billing.HandleNotification(c.UserContext(), n, payload); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

type verifyRequest struct {
	OrderID string `json:"order_id"`
}

// HandleVerify checks one of the caller's orders against the gateway and
// applies the result right away.
func (pc *PaymentController) HandleVerify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return badRequest(c, "order_id is required")
	}

	result, err := pc.billing.VerifyAndUpgrade(c.UserContext(), usercontext.GetUserID(c), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"order_id":        result.OrderID,
		"status":          result.Status,
		"plan":            result.Plan,
		"plan_expires_at": result.PlanExpiresAt,
	})
}

// HandleCreateTransaction prices a plan purchase and opens a gateway checkout.
func (pc *PaymentController) HandleCreateTransaction(c *fiber.Ctx) error {
	var in billing.CheckoutInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := pc.billing.CreateTransaction(c.UserContext(), usercontext.GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleListPayments returns the caller's payments, newest first.
func (pc *PaymentController) HandleListPayments(c *fiber.Ctx) error {
	payments, err := pc.billing.ListPayments(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"payments": payments})
}
