package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/QuizFox/app/models"
)

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// MailFunc sends one e-mail.
type MailFunc func(to, subject, body string) error

// NotificationHandler stores queued notifications. Admin notifications are
// additionally mailed to adminEmail when both a mailer and an address are set;
// mail failures are logged and do not fail the job.
func NotificationHandler(store NotificationStore, mail MailFunc, adminEmail string) Handler {
	return func(ctx context.Context, job *Job) error {
		p, err := NotificationJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("decode notification payload: %w", err)
		}

		n := &models.Notification{
			UserID:      p.UserID,
			Audience:    p.Audience,
			Type:        p.Type,
			Content:     p.Content,
			ReferenceID: p.ReferenceID,
		}
		if err := store.CreateNotification(ctx, n); err != nil {
			return fmt.Errorf("store %s notification: %w", p.Type, err)
		}

		if p.Audience == models.NotificationAudienceAdmin && mail != nil && adminEmail != "" {
			subject := fmt.Sprintf("[QuizFox] %s", p.Type)
			if err := mail(adminEmail, subject, p.Content); err != nil {
				log.Warnf("[JobQueue] Failed to mail admin notification %s/%d: %v", p.Type, p.ReferenceID, err)
			}
		}
		return nil
	}
}

// ObjectArchive stores archived webhook bodies.
type ObjectArchive interface {
	ObjectKey(provider, orderID string, receivedAt time.Time) string
	Put(ctx context.Context, objectKey string, body []byte, metadata map[string]string) error
}

// WebhookArchiveHandler uploads queued gateway notifications to object storage.
func WebhookArchiveHandler(archive ObjectArchive) Handler {
	return func(ctx context.Context, job *Job) error {
		p, err := WebhookArchiveJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("decode archive payload: %w", err)
		}
		key := archive.ObjectKey(p.Provider, p.OrderID, p.ReceivedAt)
		return archive.Put(ctx, key, []byte(p.Body), map[string]string{
			"provider": p.Provider,
			"order-id": p.OrderID,
		})
	}
}
