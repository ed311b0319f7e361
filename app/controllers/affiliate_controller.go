package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/QuizFox/internal/pkg/affiliate"
	"github.com/ManuelReschke/QuizFox/internal/pkg/usercontext"
)

// AffiliateController serves the caller's affiliate account and withdrawals
type AffiliateController struct {
	affiliates *affiliate.Service
}

func NewAffiliateController(svc *affiliate.Service) *AffiliateController {
	return &AffiliateController{affiliates: svc}
}

// HandleGetAffiliate returns the caller's affiliate account, registering an
// inactive one on first access.
func (ac *AffiliateController) HandleGetAffiliate(c *fiber.Ctx) error {
	aff, err := ac.affiliates.GetOrCreateAffiliate(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(aff)
}

func (ac *AffiliateController) HandleUpdateReferralCode(c *fiber.Ctx) error {
	var in affiliate.ReferralCodeInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	aff, err := ac.affiliates.UpdateReferralCode(c.UserContext(), usercontext.GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(aff)
}

// HandleRequestWithdrawal reserves the amount from the caller's balance.
func (ac *AffiliateController) HandleRequestWithdrawal(c *fiber.Ctx) error {
	var in affiliate.WithdrawalInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	w, err := ac.affiliates.RequestWithdrawal(c.UserContext(), usercontext.GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(w)
}

func (ac *AffiliateController) HandleListWithdrawals(c *fiber.Ctx) error {
	list, err := ac.affiliates.ListWithdrawals(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"withdrawals": list})
}
