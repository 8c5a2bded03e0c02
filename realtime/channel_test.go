package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kamaubrian/nyumba_stays/messaging"
	"github.com/kamaubrian/nyumba_stays/models"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory ConversationStore for channel tests.
type fakeStore struct {
	conversations map[uuid.UUID]*models.Conversation
	messages      map[uuid.UUID]*models.Message
	order         []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conversations: make(map[uuid.UUID]*models.Conversation),
		messages:      make(map[uuid.UUID]*models.Message),
	}
}

func (f *fakeStore) addConversation(a, b uuid.UUID) *models.Conversation {
	one, two := models.CanonicalPair(a, b)
	conv := &models.Conversation{ID: uuid.New(), ParticipantOneID: one, ParticipantTwoID: two}
	f.conversations[conv.ID] = conv
	return conv
}

func (f *fakeStore) FindConversation(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv, ok := f.conversations[id]
	if !ok {
		return nil, messaging.ErrConversationNotFound
	}
	copied := *conv
	return &copied, nil
}

func (f *fakeStore) FindOrCreateConversation(_ context.Context, a, b uuid.UUID, _ *uuid.UUID) (*models.Conversation, error) {
	if a == b {
		return nil, messaging.ErrSameParticipant
	}
	return f.addConversation(a, b), nil
}

func (f *fakeStore) ListConversations(context.Context, uuid.UUID, int, int) ([]models.Conversation, error) {
	return nil, nil
}

func (f *fakeStore) ListMessages(context.Context, uuid.UUID, int, int) ([]models.Message, error) {
	return nil, nil
}

func (f *fakeStore) CreateMessage(_ context.Context, in messaging.NewMessage) (*models.Message, error) {
	if errs := in.Validate(); len(errs) > 0 {
		return nil, messaging.ErrMessageNotFound
	}
	conv, ok := f.conversations[in.ConversationID]
	if !ok {
		return nil, messaging.ErrConversationNotFound
	}
	if !conv.HasParticipant(in.SenderID) {
		return nil, messaging.ErrNotParticipant
	}
	msg := &models.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		RecipientID:    conv.OtherParticipant(in.SenderID),
		Content:        in.Content,
		MessageType:    in.MessageType,
		Status:         models.MessageStatusUnread,
		CreatedAt:      time.Now(),
	}
	f.messages[msg.ID] = msg
	f.order = append(f.order, msg.ID)
	return msg, nil
}

func (f *fakeStore) GetMessage(_ context.Context, id uuid.UUID) (*models.Message, error) {
	msg, ok := f.messages[id]
	if !ok {
		return nil, messaging.ErrMessageNotFound
	}
	return msg, nil
}

func (f *fakeStore) MarkMessageRead(_ context.Context, conversationID, messageID, readerID uuid.UUID) (*models.Message, bool, error) {
	msg, ok := f.messages[messageID]
	if !ok || msg.ConversationID != conversationID {
		return nil, false, messaging.ErrMessageNotFound
	}
	if msg.RecipientID != readerID {
		return nil, false, messaging.ErrNotRecipient
	}
	if msg.Status != models.MessageStatusUnread {
		return msg, false, nil
	}
	now := time.Now()
	msg.Status = models.MessageStatusRead
	msg.ReadAt = &now
	return msg, true, nil
}

func (f *fakeStore) MarkConversationRead(_ context.Context, conversationID, readerID uuid.UUID) (time.Time, int64, error) {
	now := time.Now()
	var updated int64
	for _, msg := range f.messages {
		if msg.ConversationID == conversationID && msg.RecipientID == readerID && msg.Status == models.MessageStatusUnread {
			msg.Status = models.MessageStatusRead
			msg.ReadAt = &now
			updated++
		}
	}
	return now, updated, nil
}

func (f *fakeStore) UnreadCount(_ context.Context, conversationID, userID uuid.UUID) (int64, error) {
	var count int64
	for _, msg := range f.messages {
		if msg.ConversationID == conversationID && msg.RecipientID == userID && msg.Status == models.MessageStatusUnread {
			count++
		}
	}
	return count, nil
}

var _ messaging.ConversationStore = (*fakeStore)(nil)

type fakeEnqueuer struct {
	enqueued []uuid.UUID
}

func (f *fakeEnqueuer) EnqueueMessageCreated(_ context.Context, messageID uuid.UUID) error {
	f.enqueued = append(f.enqueued, messageID)
	return nil
}

// drain empties a session outbox and decodes each payload's action field.
func drain(t *testing.T, s *Session) []map[string]json.RawMessage {
	t.Helper()
	var events []map[string]json.RawMessage
	for {
		select {
		case payload := <-s.Outbox():
			var event map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(payload, &event))
			events = append(events, event)
		default:
			return events
		}
	}
}

func actions(events []map[string]json.RawMessage) []string {
	out := make([]string, 0, len(events))
	for _, event := range events {
		var action string
		_ = json.Unmarshal(event["action"], &action)
		out = append(out, action)
	}
	return out
}

func newTestChannel(store *fakeStore) (*Channel, *fakeEnqueuer) {
	enqueuer := &fakeEnqueuer{}
	return NewChannel(store, ParticipantGate{}, NewTopicRegistry(), nil, enqueuer), enqueuer
}

func TestSubscribeRejectsOutsidersAndUnknownConversations(t *testing.T) {
	store := newFakeStore()
	channel, _ := newTestChannel(store)
	ctx := context.Background()

	alice, bob, mallory := uuid.New(), uuid.New(), uuid.New()
	conv := store.addConversation(alice, bob)

	_, err := channel.Subscribe(ctx, NewSession(mallory, "Mallory"), conv.ID)
	require.ErrorIs(t, err, ErrSubscriptionRejected)

	// Unknown conversations fail identically, so membership is not probeable.
	_, err = channel.Subscribe(ctx, NewSession(alice, "Alice"), uuid.New())
	require.ErrorIs(t, err, ErrSubscriptionRejected)

	_, err = channel.Subscribe(ctx, NewSession(alice, "Alice"), conv.ID)
	require.NoError(t, err)
}

func TestSpeakFansOutToAllSessionsIncludingSenders(t *testing.T) {
	store := newFakeStore()
	channel, enqueuer := newTestChannel(store)
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	conv := store.addConversation(alice, bob)

	alicePhone := NewSession(alice, "Alice")
	aliceLaptop := NewSession(alice, "Alice")
	bobPhone := NewSession(bob, "Bob")

	subPhone, err := channel.Subscribe(ctx, alicePhone, conv.ID)
	require.NoError(t, err)
	_, err = channel.Subscribe(ctx, aliceLaptop, conv.ID)
	require.NoError(t, err)
	_, err = channel.Subscribe(ctx, bobPhone, conv.ID)
	require.NoError(t, err)

	subPhone.Speak(ctx, "hello from my phone", models.MessageTypeText)

	for _, sess := range []*Session{alicePhone, aliceLaptop, bobPhone} {
		events := drain(t, sess)
		require.Equal(t, []string{ActionMessageCreated}, actions(events))
	}
	require.Len(t, enqueuer.enqueued, 1)
}

func TestSpeakValidationErrorGoesOnlyToInitiator(t *testing.T) {
	store := newFakeStore()
	channel, enqueuer := newTestChannel(store)
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	conv := store.addConversation(alice, bob)

	aliceSess := NewSession(alice, "Alice")
	bobSess := NewSession(bob, "Bob")
	aliceSub, err := channel.Subscribe(ctx, aliceSess, conv.ID)
	require.NoError(t, err)
	_, err = channel.Subscribe(ctx, bobSess, conv.ID)
	require.NoError(t, err)

	aliceSub.Speak(ctx, "   ", models.MessageTypeText)

	aliceEvents := drain(t, aliceSess)
	require.Equal(t, []string{ActionMessageError}, actions(aliceEvents))

	var errs []string
	require.NoError(t, json.Unmarshal(aliceEvents[0]["errors"], &errs))
	require.Contains(t, errs, "content can't be blank")

	require.Empty(t, drain(t, bobSess))
	require.Empty(t, enqueuer.enqueued)
	require.Empty(t, store.messages)
}

func TestTypingExcludesEveryActorSession(t *testing.T) {
	store := newFakeStore()
	channel, _ := newTestChannel(store)
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	conv := store.addConversation(alice, bob)

	alicePhone := NewSession(alice, "Alice")
	aliceLaptop := NewSession(alice, "Alice")
	bobPhone := NewSession(bob, "Bob")

	sub, err := channel.Subscribe(ctx, alicePhone, conv.ID)
	require.NoError(t, err)
	_, err = channel.Subscribe(ctx, aliceLaptop, conv.ID)
	require.NoError(t, err)
	_, err = channel.Subscribe(ctx, bobPhone, conv.ID)
	require.NoError(t, err)

	sub.Typing(ctx, true)

	// Exclusion is by user, so even the actor's other device stays quiet.
	require.Empty(t, drain(t, alicePhone))
	require.Empty(t, drain(t, aliceLaptop))
	require.Equal(t, []string{ActionUserTyping}, actions(drain(t, bobPhone)))
}

func TestPresenceExcludesActor(t *testing.T) {
	store := newFakeStore()
	channel, _ := newTestChannel(store)
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	conv := store.addConversation(alice, bob)

	aliceSess := NewSession(alice, "Alice")
	bobSess := NewSession(bob, "Bob")
	sub, err := channel.Subscribe(ctx, aliceSess, conv.ID)
	require.NoError(t, err)
	_, err = channel.Subscribe(ctx, bobSess, conv.ID)
	require.NoError(t, err)

	sub.UpdatePresence(ctx, "online")

	require.Empty(t, drain(t, aliceSess))
	events := drain(t, bobSess)
	require.Equal(t, []string{ActionUserPresence}, actions(events))

	var status string
	require.NoError(t, json.Unmarshal(events[0]["status"], &status))
	require.Equal(t, "online", status)
}

func TestMarkAsReadBroadcastsReceipt(t *testing.T) {
	store := newFakeStore()
	channel, _ := newTestChannel(store)
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	conv := store.addConversation(alice, bob)

	aliceSess := NewSession(alice, "Alice")
	bobSess := NewSession(bob, "Bob")
	aliceSub, err := channel.Subscribe(ctx, aliceSess, conv.ID)
	require.NoError(t, err)
	bobSub, err := channel.Subscribe(ctx, bobSess, conv.ID)
	require.NoError(t, err)

	aliceSub.Speak(ctx, "please read this", models.MessageTypeText)
	messageID := store.order[0]
	drain(t, aliceSess)
	drain(t, bobSess)

	// The sender is not the recipient: silent no-op.
	aliceSub.MarkAsRead(ctx, &messageID)
	require.Empty(t, drain(t, aliceSess))
	require.Empty(t, drain(t, bobSess))
	require.Equal(t, models.MessageStatusUnread, store.messages[messageID].Status)

	bobSub.MarkAsRead(ctx, &messageID)
	require.Equal(t, []string{ActionMessageRead}, actions(drain(t, aliceSess)))
	require.Equal(t, []string{ActionMessageRead}, actions(drain(t, bobSess)))
	firstReadAt := *store.messages[messageID].ReadAt

	// Re-marking writes nothing but still broadcasts the receipt.
	bobSub.MarkAsRead(ctx, &messageID)
	require.Equal(t, []string{ActionMessageRead}, actions(drain(t, aliceSess)))
	require.Equal(t, firstReadAt, *store.messages[messageID].ReadAt)
}

func TestMarkAllAsReadScopesToActor(t *testing.T) {
	store := newFakeStore()
	channel, _ := newTestChannel(store)
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	conv := store.addConversation(alice, bob)

	aliceSess := NewSession(alice, "Alice")
	bobSess := NewSession(bob, "Bob")
	aliceSub, err := channel.Subscribe(ctx, aliceSess, conv.ID)
	require.NoError(t, err)
	bobSub, err := channel.Subscribe(ctx, bobSess, conv.ID)
	require.NoError(t, err)

	aliceSub.Speak(ctx, "one", models.MessageTypeText)
	aliceSub.Speak(ctx, "two", models.MessageTypeText)
	bobSub.Speak(ctx, "three", models.MessageTypeText)
	drain(t, aliceSess)
	drain(t, bobSess)

	bobSub.MarkAsRead(ctx, nil)

	require.Equal(t, []string{ActionConversationRead}, actions(drain(t, aliceSess)))
	require.Equal(t, []string{ActionConversationRead}, actions(drain(t, bobSess)))

	unread, err := store.UnreadCount(ctx, conv.ID, bob)
	require.NoError(t, err)
	require.EqualValues(t, 0, unread)

	// Bob's own message to Alice is still unread for her.
	unread, err = store.UnreadCount(ctx, conv.ID, alice)
	require.NoError(t, err)
	require.EqualValues(t, 1, unread)
}

func TestActionsAfterMembershipRevokedAreSilent(t *testing.T) {
	store := newFakeStore()
	channel, enqueuer := newTestChannel(store)
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	conv := store.addConversation(alice, bob)

	aliceSess := NewSession(alice, "Alice")
	bobSess := NewSession(bob, "Bob")
	aliceSub, err := channel.Subscribe(ctx, aliceSess, conv.ID)
	require.NoError(t, err)
	_, err = channel.Subscribe(ctx, bobSess, conv.ID)
	require.NoError(t, err)

	// Membership changes under an established subscription; every action
	// re-checks, so the next one is a silent no-op.
	store.conversations[conv.ID].ParticipantOneID = uuid.New()
	store.conversations[conv.ID].ParticipantTwoID = bob

	aliceSub.Speak(ctx, "still here?", models.MessageTypeText)
	aliceSub.Typing(ctx, true)
	aliceSub.MarkAsRead(ctx, nil)

	require.Empty(t, drain(t, aliceSess))
	require.Empty(t, drain(t, bobSess))
	require.Empty(t, enqueuer.enqueued)
	require.Empty(t, store.messages)
}

func TestEventsArriveInPersistenceOrder(t *testing.T) {
	store := newFakeStore()
	channel, _ := newTestChannel(store)
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	conv := store.addConversation(alice, bob)

	aliceSess := NewSession(alice, "Alice")
	bobSess := NewSession(bob, "Bob")
	aliceSub, err := channel.Subscribe(ctx, aliceSess, conv.ID)
	require.NoError(t, err)
	_, err = channel.Subscribe(ctx, bobSess, conv.ID)
	require.NoError(t, err)

	aliceSub.Speak(ctx, "first", models.MessageTypeText)
	aliceSub.Speak(ctx, "second", models.MessageTypeText)

	events := drain(t, bobSess)
	require.Len(t, events, 2)
	var first, second struct {
		Message MessageView `json:"message"`
	}
	require.NoError(t, json.Unmarshal(mustMarshal(t, events[0]), &first))
	require.NoError(t, json.Unmarshal(mustMarshal(t, events[1]), &second))
	require.Equal(t, "first", first.Message.Content)
	require.Equal(t, "second", second.Message.Content)
	require.Equal(t, store.order[0].String(), first.Message.ID)
	require.Equal(t, store.order[1].String(), second.Message.ID)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	store := newFakeStore()
	channel, _ := newTestChannel(store)
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	conv := store.addConversation(alice, bob)

	aliceSess := NewSession(alice, "Alice")
	bobSess := NewSession(bob, "Bob")
	aliceSub, err := channel.Subscribe(ctx, aliceSess, conv.ID)
	require.NoError(t, err)
	bobSub, err := channel.Subscribe(ctx, bobSess, conv.ID)
	require.NoError(t, err)

	bobSub.Unsubscribe()
	aliceSub.Speak(ctx, "anyone there?", models.MessageTypeText)

	require.Equal(t, []string{ActionMessageCreated}, actions(drain(t, aliceSess)))
	require.Empty(t, drain(t, bobSess))
}

// TestTwoUserConversationFlow walks a full guest/host exchange: multi-device
// subscribe, messages both ways, a typing indicator, and a read receipt.
func TestTwoUserConversationFlow(t *testing.T) {
	store := newFakeStore()
	channel, enqueuer := newTestChannel(store)
	ctx := context.Background()

	guest, host := uuid.New(), uuid.New()
	conv := store.addConversation(guest, host)

	guestPhone := NewSession(guest, "Akinyi")
	guestLaptop := NewSession(guest, "Akinyi")
	hostPhone := NewSession(host, "Mwangi")

	guestSub, err := channel.Subscribe(ctx, guestPhone, conv.ID)
	require.NoError(t, err)
	_, err = channel.Subscribe(ctx, guestLaptop, conv.ID)
	require.NoError(t, err)
	hostSub, err := channel.Subscribe(ctx, hostPhone, conv.ID)
	require.NoError(t, err)

	hostSub.Typing(ctx, true)
	hostSub.Speak(ctx, "Karibu! The cottage is free that weekend.", models.MessageTypeText)
	hostSub.Typing(ctx, false)
	guestSub.Speak(ctx, "Great, booking it now.", models.MessageTypeText)

	firstID := store.order[0]
	guestSub.MarkAsRead(ctx, &firstID)

	// The guest's devices see the typing start/stop, both messages, and the
	// read receipt, in that order.
	for _, sess := range []*Session{guestPhone, guestLaptop} {
		require.Equal(t, []string{
			ActionUserTyping,
			ActionMessageCreated,
			ActionUserTyping,
			ActionMessageCreated,
			ActionMessageRead,
		}, actions(drain(t, sess)))
	}

	// The host never receives their own typing events.
	require.Equal(t, []string{
		ActionMessageCreated,
		ActionMessageCreated,
		ActionMessageRead,
	}, actions(drain(t, hostPhone)))

	require.Len(t, store.messages, 2)
	require.Len(t, enqueuer.enqueued, 2)
	require.Equal(t, models.MessageStatusRead, store.messages[firstID].Status)
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
