package jobqueue

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/QuizFox/internal/pkg/notify"
)

// Notifier hands notifications to the job queue. When enqueueing fails the
// message goes to the fallback notifier instead.
type Notifier struct {
	queue    *Queue
	fallback notify.Notifier
}

func NewNotifier(q *Queue) *Notifier {
	return &Notifier{queue: q, fallback: notify.Log{}}
}

func (n *Notifier) Notify(ctx context.Context, msg notify.Message) {
	payload := NotificationJobPayload{
		UserID:      msg.UserID,
		Audience:    msg.Audience,
		Type:        msg.Type,
		Content:     msg.Content,
		ReferenceID: msg.ReferenceID,
	}
	if _, err := n.queue.EnqueueJob(ctx, JobTypeNotification, payload.ToMap()); err != nil {
		log.Errorf("[JobQueue] Failed to enqueue %s notification: %v", msg.Type, err)
		n.fallback.Notify(ctx, msg)
	}
}

// Archiver queues raw gateway notifications for upload to object storage.
type Archiver struct {
	queue    *Queue
	provider string
	now      func() time.Time
}

func NewArchiver(q *Queue, provider string) *Archiver {
	return &Archiver{queue: q, provider: provider, now: time.Now}
}

func (a *Archiver) ArchiveNotification(ctx context.Context, orderID string, payload []byte) error {
	p := WebhookArchiveJobPayload{
		Provider:   a.provider,
		OrderID:    orderID,
		Body:       string(payload),
		ReceivedAt: a.now(),
	}
	_, err := a.queue.EnqueueJob(ctx, JobTypeWebhookArchive, p.ToMap())
	return err
}
