package notifications

import (
	"context"

	"github.com/google/uuid"
)

// PushSender delivers a push notification for a new message. The dispatcher
// always goes through this interface so enabling push later is a wiring
// change, not a dispatcher change.
type PushSender interface {
	Send(ctx context.Context, userID uuid.UUID, title, body string) error
}

// NoopPushSender is the current push implementation: it is called for every
// eligible message and produces no external effect. Reserved for a real
// provider integration.
type NoopPushSender struct{}

var _ PushSender = NoopPushSender{}

func (NoopPushSender) Send(ctx context.Context, userID uuid.UUID, title, body string) error {
	return nil
}
