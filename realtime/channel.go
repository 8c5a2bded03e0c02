package realtime

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/kamaubrian/nyumba_stays/messaging"
	"github.com/kamaubrian/nyumba_stays/models"
)

// ErrSubscriptionRejected is returned for both unknown conversations and
// non-participants, so unauthorized callers cannot probe for existence.
var ErrSubscriptionRejected = errors.New("realtime: subscription rejected")

// NotificationEnqueuer hands a just-created message to the asynchronous
// notification pipeline. Enqueueing must be cheap; everything slow happens
// in the worker.
type NotificationEnqueuer interface {
	EnqueueMessageCreated(ctx context.Context, messageID uuid.UUID) error
}

// Channel is the per-conversation real-time channel: it authorizes
// subscribers, persists spoken messages, and fans structured events out to
// every current subscriber of a conversation topic.
type Channel struct {
	store    messaging.ConversationStore
	gate     Gate
	topics   *TopicRegistry
	renderer FragmentRenderer
	queue    NotificationEnqueuer
}

func NewChannel(store messaging.ConversationStore, gate Gate, topics *TopicRegistry, renderer FragmentRenderer, queue NotificationEnqueuer) *Channel {
	return &Channel{
		store:    store,
		gate:     gate,
		topics:   topics,
		renderer: renderer,
		queue:    queue,
	}
}

// Topics exposes the registry for collaborators that re-broadcast events,
// e.g. the notification worker.
func (ch *Channel) Topics() *TopicRegistry { return ch.topics }

// Subscribe moves a (session, conversation) pair from Unsubscribed to
// Subscribed. A missing conversation and a failed membership check are
// indistinguishable to the caller.
func (ch *Channel) Subscribe(ctx context.Context, sess *Session, conversationID uuid.UUID) (*Subscription, error) {
	conv, err := ch.store.FindConversation(ctx, conversationID)
	if err != nil {
		if !errors.Is(err, messaging.ErrConversationNotFound) {
			log.Printf("conversation lookup failed during subscribe: %v", err)
		}
		return nil, ErrSubscriptionRejected
	}
	if !ch.gate.CanSubscribe(sess.UserID, conv) {
		return nil, ErrSubscriptionRejected
	}

	ch.topics.Subscribe(conversationID, sess)
	return &Subscription{channel: ch, session: sess, conversationID: conversationID}, nil
}

// Subscription is the Subscribed state of one (session, conversation) pair.
// Every action re-validates authorization against the store, so membership
// revoked mid-session takes effect on the next action.
type Subscription struct {
	channel        *Channel
	session        *Session
	conversationID uuid.UUID
}

func (s *Subscription) ConversationID() uuid.UUID { return s.conversationID }

// Unsubscribe removes the session from the topic. Terminal; no persisted
// side effects.
func (s *Subscription) Unsubscribe() {
	s.channel.topics.Unsubscribe(s.conversationID, s.session)
}

// reauthorize re-checks membership for an action. Returning ok=false means
// the action must be a silent no-op: the client gets no response and no
// event is broadcast.
func (s *Subscription) reauthorize(ctx context.Context) (*models.Conversation, bool) {
	conv, err := s.channel.store.FindConversation(ctx, s.conversationID)
	if err != nil {
		if !errors.Is(err, messaging.ErrConversationNotFound) {
			log.Printf("conversation lookup failed during action: %v", err)
		}
		return nil, false
	}
	if !s.channel.gate.CanPost(s.session.UserID, conv) {
		return nil, false
	}
	return conv, true
}

// Speak persists a new message and broadcasts message_created to every
// subscriber of the conversation, including the sender's other sessions.
// Validation failures go back to the initiating session only.
func (s *Subscription) Speak(ctx context.Context, content string, messageType models.MessageType) {
	if _, ok := s.reauthorize(ctx); !ok {
		return
	}

	in := messaging.NewMessage{
		ConversationID: s.conversationID,
		SenderID:       s.session.UserID,
		Content:        content,
		MessageType:    messageType,
	}
	if errs := in.Validate(); len(errs) > 0 {
		_ = s.session.Deliver(MessageErrorPayload(errs))
		return
	}

	var created *models.Message
	s.channel.topics.Publish(s.conversationID, func() {
		msg, err := s.channel.store.CreateMessage(ctx, in)
		if err != nil {
			log.Printf("failed to save message from %s: %v", s.session.UserID, err)
			_ = s.session.Deliver(MessageErrorPayload([]string{"message could not be saved"}))
			return
		}

		view := NewMessageView(msg, s.session.UserName)
		html := RenderFragment(s.channel.renderer, view)
		s.channel.topics.Broadcast(s.conversationID, MessageCreatedPayload(view, html), uuid.Nil)
		created = msg
	})

	if created == nil || s.channel.queue == nil {
		return
	}
	// Fire-and-forget: the live broadcast already happened and must not
	// depend on the notification pipeline.
	if err := s.channel.queue.EnqueueMessageCreated(ctx, created.ID); err != nil {
		log.Printf("failed to enqueue notification for message %s: %v", created.ID, err)
	}
}

// Typing broadcasts a typing indicator to every subscriber whose user is not
// the actor. Exclusion is by user, so none of the actor's own devices echo.
func (s *Subscription) Typing(ctx context.Context, typing bool) {
	if _, ok := s.reauthorize(ctx); !ok {
		return
	}
	payload := UserTypingPayload(s.session.UserID, s.session.UserName, typing)
	s.channel.topics.Broadcast(s.conversationID, payload, s.session.UserID)
}

// MarkAsRead transitions a single message (or, without an id, every unread
// message addressed to the actor in this conversation) to read and
// broadcasts the receipt to all subscribers. Re-marking an already-read
// message writes nothing but still broadcasts.
func (s *Subscription) MarkAsRead(ctx context.Context, messageID *uuid.UUID) {
	if _, ok := s.reauthorize(ctx); !ok {
		return
	}

	if messageID == nil {
		s.channel.topics.Publish(s.conversationID, func() {
			readAt, _, err := s.channel.store.MarkConversationRead(ctx, s.conversationID, s.session.UserID)
			if err != nil {
				log.Printf("failed to mark conversation %s read: %v", s.conversationID, err)
				return
			}
			s.channel.topics.Broadcast(s.conversationID, ConversationReadPayload(s.session.UserID, readAt), uuid.Nil)
		})
		return
	}

	s.channel.topics.Publish(s.conversationID, func() {
		msg, _, err := s.channel.store.MarkMessageRead(ctx, s.conversationID, *messageID, s.session.UserID)
		if err != nil {
			// Not the recipient or no such message: silent no-op.
			if !errors.Is(err, messaging.ErrNotRecipient) && !errors.Is(err, messaging.ErrMessageNotFound) {
				log.Printf("failed to mark message %s read: %v", *messageID, err)
			}
			return
		}
		if msg.ReadAt == nil {
			return
		}
		s.channel.topics.Broadcast(s.conversationID, MessageReadPayload(msg.ID, s.session.UserID, *msg.ReadAt), uuid.Nil)
	})
}

// UpdatePresence broadcasts a presence change to every subscriber whose
// user is not the actor.
func (s *Subscription) UpdatePresence(ctx context.Context, status string) {
	if _, ok := s.reauthorize(ctx); !ok {
		return
	}
	payload := UserPresencePayload(s.session.UserID, s.session.UserName, status)
	s.channel.topics.Broadcast(s.conversationID, payload, s.session.UserID)
}
