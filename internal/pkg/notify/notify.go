// Package notify delivers user and admin notifications after a financial
// change has been committed. Delivery is best effort: a failure is logged by the
// implementation and never reported back to the caller.
package notify

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
)

type Message struct {
	UserID      uint   `json:"user_id"`
	Audience    string `json:"audience"`
	Type        string `json:"type"`
	Content     string `json:"content"`
	ReferenceID uint   `json:"reference_id"`
}

type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, msg Message)

func (f Func) Notify(ctx context.Context, msg Message) {
	f(ctx, msg)
}

// Log writes notifications to the application log. It is the fallback when no
// queue is configured.
type Log struct{}

func (Log) Notify(_ context.Context, msg Message) {
	log.Infof("[Notify] %s notification for user %d (%s): %s", msg.Audience, msg.UserID, msg.Type, msg.Content)
}

// Dispatch sends every message, shielding the caller from panics in a notifier.
func Dispatch(ctx context.Context, n Notifier, msgs ...Message) {
	if n == nil {
		return
	}
	for _, msg := range msgs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("[Notify] notifier panicked for %s/%d: %v", msg.Type, msg.ReferenceID, r)
				}
			}()
			n.Notify(ctx, msg)
		}()
	}
}
