package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/QuizFox/app/controllers"
	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/app/repository"
	"github.com/ManuelReschke/QuizFox/internal/pkg/affiliate"
	"github.com/ManuelReschke/QuizFox/internal/pkg/billing"
	"github.com/ManuelReschke/QuizFox/internal/pkg/cache"
	"github.com/ManuelReschke/QuizFox/internal/pkg/database"
	"github.com/ManuelReschke/QuizFox/internal/pkg/env"
	"github.com/ManuelReschke/QuizFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/QuizFox/internal/pkg/ledger"
	"github.com/ManuelReschke/QuizFox/internal/pkg/mail"
	"github.com/ManuelReschke/QuizFox/internal/pkg/router"
	"github.com/ManuelReschke/QuizFox/internal/pkg/s3archive"
)

const (
	taskReconcilePayments = "reconcile_payments"
	taskExpirePlans       = "expire_plans"
)

func main() {
	app, manager := NewApplication()
	manager.Start()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("[Main] Shutting down")
		manager.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Errorf("[Main] Shutdown failed: %v", err)
		}
	}()

	if err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))); err != nil {
		log.Fatal(err)
	}
}

func NewApplication() (*fiber.App, *jobqueue.Manager) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()
	store := ledger.NewGormStore(db)

	// background jobs
	manager := jobqueue.GetManager()
	queue := manager.GetQueue()
	queue.RegisterHandler(jobqueue.JobTypeNotification, jobqueue.NotificationHandler(repos.Notification, mail.SendMail, mail.AdminEmail()))
	notifier := jobqueue.NewNotifier(queue)

	billingOpts := []billing.Option{billing.WithNotifier(notifier)}
	if archive := setupArchive(queue); archive != nil {
		billingOpts = append(billingOpts, billing.WithArchiver(archive))
	}

	billingSvc := billing.NewService(store, billing.NewMidtransGateway(billing.MidtransConfigFromEnv()), repos.Setting, billing.ConfigFromEnv(), billingOpts...)
	affiliateSvc := affiliate.NewService(store, repos.Setting, affiliate.WithNotifier(notifier))
	registerTasks(manager, billingSvc)

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "quizfox"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: env.GetEnv("OPENAPI_FILE", "./public/docs/v1/openapi.yml"),
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Payments:       controllers.NewPaymentController(billingSvc),
		Affiliates:     controllers.NewAffiliateController(affiliateSvc),
		Admin:          controllers.NewAdminController(billingSvc, affiliateSvc, repos.Setting, queue, manager),
		Notifications:  controllers.NewNotificationController(repos.Notification),
		Users:          repos.User,
		LimiterStorage: router.NewLimiterStorage(),
		HealthChecks: map[string]func() error{
			"database": func() error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Ping()
			},
			"cache": func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return cache.Ping(ctx)
			},
		},
	})

	return app, manager
}

// setupArchive enables archiving of raw webhook bodies when S3 is configured.
func setupArchive(queue *jobqueue.Queue) billing.Archiver {
	cfg, err := s3archive.LoadConfig()
	if err != nil {
		log.Warnf("[Main] Webhook archive disabled: %v", err)
		return nil
	}
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := s3archive.NewClient(context.Background(), cfg)
	if err != nil {
		log.Errorf("[Main] Webhook archive disabled, S3 client failed: %v", err)
		return nil
	}
	queue.RegisterHandler(jobqueue.JobTypeWebhookArchive, jobqueue.WebhookArchiveHandler(client))
	log.Infof("[Main] Archiving webhooks to bucket %s", cfg.BucketName)
	return jobqueue.NewArchiver(queue, models.BillingProviderMidtrans)
}

func registerTasks(manager *jobqueue.Manager, svc *billing.Service) {
	reconcileAfter := env.GetDuration("RECONCILE_PENDING_AFTER_MINUTES", 30, time.Minute)
	manager.RegisterPeriodicTask(jobqueue.PeriodicTask{
		Name:     taskReconcilePayments,
		Interval: env.GetDuration("RECONCILE_INTERVAL_MINUTES", 10, time.Minute),
		Run: func(ctx context.Context) error {
			_, err := svc.ReconcilePending(ctx, reconcileAfter, 100)
			return err
		},
	})
	manager.RegisterPeriodicTask(jobqueue.PeriodicTask{
		Name:     taskExpirePlans,
		Interval: env.GetDuration("EXPIRE_PLANS_INTERVAL_MINUTES", 60, time.Minute),
		Run: func(ctx context.Context) error {
			_, err := svc.ExpirePlans(ctx)
			return err
		},
	})
}
