package notifications

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/kamaubrian/nyumba_stays/messaging"
	"github.com/kamaubrian/nyumba_stays/models"
	"github.com/kamaubrian/nyumba_stays/realtime"
)

// Broadcaster is the slice of the topic registry the dispatcher needs for
// its redundant re-broadcast.
type Broadcaster interface {
	Broadcast(conversationID uuid.UUID, payload []byte, excludeUserID uuid.UUID) int
}

// Dispatcher consumes a message-created fact off the queue and performs the
// slow side effects (email, push, re-broadcast, analytics log) away from the
// real-time path. Each step is failure-isolated: a failed email never stops
// the re-broadcast, and nothing here ever reaches back to a live connection.
type Dispatcher struct {
	Store    messaging.ConversationStore
	Email    EmailSender
	Push     PushSender
	Topics   Broadcaster
	Renderer realtime.FragmentRenderer
}

func NewDispatcher(store messaging.ConversationStore, email EmailSender, push PushSender, topics Broadcaster, renderer realtime.FragmentRenderer) *Dispatcher {
	return &Dispatcher{
		Store:    store,
		Email:    email,
		Push:     push,
		Topics:   topics,
		Renderer: renderer,
	}
}

// Dispatch processes one message-created fact. A messaging.ErrMessageNotFound
// return tells the queue to discard the job; any other error is transient
// and retryable.
func (d *Dispatcher) Dispatch(ctx context.Context, messageID uuid.UUID) error {
	msg, err := d.Store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, messaging.ErrMessageNotFound) {
			return err
		}
		return fmt.Errorf("load message %s: %w", messageID, err)
	}

	if msg.MessageType == models.MessageTypeSystem || msg.RecipientID == uuid.Nil {
		log.Printf("Notification skipped for message %s (type=%s)", msg.ID, msg.MessageType)
		return nil
	}

	recipient := msg.Recipient
	sender := msg.Sender

	if d.shouldSendEmail(&recipient) {
		subject := fmt.Sprintf("New message from %s", sender.DisplayName())
		body := fmt.Sprintf(
			"<h1>You have a new message</h1><p><b>%s</b> wrote:</p><blockquote>%s</blockquote><p>Log in to Nyumba Stays to reply.</p>",
			sender.DisplayName(), preview(msg.Content),
		)
		if err := d.Email.Send(recipient.DisplayName(), recipient.Email, subject, body); err != nil {
			log.Printf("🔥 Failed to email message notification to %s: %v", recipient.Email, err)
		}
	}

	if d.shouldSendPush(&recipient) {
		if err := d.Push.Send(ctx, recipient.ID, sender.DisplayName(), preview(msg.Content)); err != nil {
			log.Printf("🔥 Failed to push message notification to %s: %v", recipient.ID, err)
		}
	}

	d.rebroadcast(msg)

	log.Printf("Notification processed: message=%s conversation=%s recipient=%s", msg.ID, msg.ConversationID, msg.RecipientID)
	return nil
}

// shouldSendEmail is the per-user preference hook; today the blanket policy
// is to email every confirmed account.
func (d *Dispatcher) shouldSendEmail(u *models.User) bool {
	return u.EmailConfirmed()
}

// shouldSendPush mirrors shouldSendEmail; push delivery itself is inert
// (see NoopPushSender) until a provider is wired in.
func (d *Dispatcher) shouldSendPush(u *models.User) bool {
	return true
}

// rebroadcast re-emits message_created to the conversation topic as a
// durability fallback for deliveries that only observe the queue. It is
// redundant with the channel's own broadcast and fully failure-isolated.
func (d *Dispatcher) rebroadcast(msg *models.Message) {
	if d.Topics == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.Printf("re-broadcast for message %s panicked: %v", msg.ID, p)
		}
	}()

	view := realtime.NewMessageView(msg, msg.Sender.DisplayName())
	html := realtime.RenderFragment(d.Renderer, view)
	d.Topics.Broadcast(msg.ConversationID, realtime.MessageCreatedPayload(view, html), uuid.Nil)
}

const previewLimit = 140

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "…"
}
