package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/app/repository"
	"github.com/ManuelReschke/QuizFox/internal/pkg/affiliate"
	"github.com/ManuelReschke/QuizFox/internal/pkg/billing"
	"github.com/ManuelReschke/QuizFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/QuizFox/internal/pkg/usercontext"
)

// QueueMonitor exposes job queue statistics
type QueueMonitor interface {
	GetJobStats(ctx context.Context) (map[jobqueue.JobStatus]int64, error)
	GetQueueSize(ctx context.Context) (int64, error)
	GetProcessingSize(ctx context.Context) (int64, error)
	GetRetrySize(ctx context.Context) (int64, error)
	GetDeadSize(ctx context.Context) (int64, error)
}

// TaskRunner triggers a registered periodic task out of schedule
type TaskRunner interface {
	RunTaskOnce(ctx context.Context, name string) bool
}

// AdminController handles administrator requests
type AdminController struct {
	billing    *billing.Service
	affiliates *affiliate.Service
	settings   repository.SettingRepository
	queue      QueueMonitor
	tasks      TaskRunner
}

func NewAdminController(billingSvc *billing.Service, affiliates *affiliate.Service, settings repository.SettingRepository, queue QueueMonitor, tasks TaskRunner) *AdminController {
	return &AdminController{
		billing:    billingSvc,
		affiliates: affiliates,
		settings:   settings,
		queue:      queue,
		tasks:      tasks,
	}
}

type withdrawalDecision struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
}

// HandleProcessWithdrawal approves or rejects a pending withdrawal.
func (ac *AdminController) HandleProcessWithdrawal(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid withdrawal id")
	}
	var req withdrawalDecision
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	w, err := ac.affiliates.ProcessWithdrawal(c.UserContext(), usercontext.GetUserID(c), id, req.Action, req.Notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(w)
}

type activationRequest struct {
	Active *bool `json:"active"`
}

func (ac *AdminController) HandleAffiliateActivation(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid affiliate id")
	}
	var req activationRequest
	if err := c.BodyParser(&req); err != nil || req.Active == nil {
		return badRequest(c, "active is required")
	}

	aff, err := ac.affiliates.ActivateAffiliate(c.UserContext(), id, *req.Active)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(aff)
}

func (ac *AdminController) HandleGetSettings(c *fiber.Ctx) error {
	settings, err := ac.settings.ProgramSettings(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(settings)
}

// HandleUpdateSettings replaces the referral program settings. The stored
// version is bumped so later purchases record which settings priced them.
func (ac *AdminController) HandleUpdateSettings(c *fiber.Ctx) error {
	var req models.ProgramSettings
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(c, billing.Wrap(billing.ErrInvalidRequest, err))
	}

	saved, err := ac.settings.SaveProgramSettings(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}
	log.Infof("[Admin] Program settings updated to version %d by admin %d", saved.Version, usercontext.GetUserID(c))
	return c.JSON(saved)
}

func (ac *AdminController) HandleCreateVoucher(c *fiber.Ctx) error {
	var in billing.VoucherInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	v, err := ac.billing.CreateVoucher(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(v)
}

// HandleQueueStats reports job queue counters for monitoring.
func (ac *AdminController) HandleQueueStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	stats, err := ac.queue.GetJobStats(ctx)
	if err != nil {
		return writeError(c, err)
	}
	pending, err := ac.queue.GetQueueSize(ctx)
	if err != nil {
		return writeError(c, err)
	}
	processing, err := ac.queue.GetProcessingSize(ctx)
	if err != nil {
		return writeError(c, err)
	}
	retrying, err := ac.queue.GetRetrySize(ctx)
	if err != nil {
		return writeError(c, err)
	}
	dead, err := ac.queue.GetDeadSize(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"queued":     pending,
		"processing": processing,
		"retrying":   retrying,
		"dead":       dead,
		"stats":      stats,
	})
}

// HandleRunTask runs a periodic task such as reconciliation immediately.
func (ac *AdminController) HandleRunTask(c *fiber.Ctx) error {
	name := c.Params("name")
	if !ac.tasks.RunTaskOnce(c.UserContext(), name) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown task " + name})
	}
	return c.JSON(fiber.Map{"ok": true, "task": name})
}
