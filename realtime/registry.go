package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// TopicRegistry groups live sessions by conversation so fan-out cost is
// bounded by the subscribers of one conversation, not all open connections.
// Registries are plain values, so tests instantiate isolated ones.
//
// Topics are retained for the lifetime of the process once created; only
// their subscriber sets empty out. This keeps the per-topic publish mutex
// stable for in-flight publishes.
type TopicRegistry struct {
	mu            sync.RWMutex
	topics        map[uuid.UUID]*topic
	sessionTopics map[uuid.UUID]map[uuid.UUID]struct{} // session ID -> conversation IDs
}

type topic struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Session // session ID -> session

	// publish serializes persist->broadcast sequences on one conversation,
	// which is what gives subscribers per-conversation event ordering.
	publish sync.Mutex
}

func NewTopicRegistry() *TopicRegistry {
	return &TopicRegistry{
		topics:        make(map[uuid.UUID]*topic),
		sessionTopics: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

func (r *TopicRegistry) getOrCreate(conversationID uuid.UUID) *topic {
	r.mu.RLock()
	t := r.topics[conversationID]
	r.mu.RUnlock()
	if t != nil {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t = r.topics[conversationID]; t == nil {
		t = &topic{subscribers: make(map[uuid.UUID]*Session)}
		r.topics[conversationID] = t
	}
	return t
}

// Subscribe adds the session to the conversation topic.
func (r *TopicRegistry) Subscribe(conversationID uuid.UUID, s *Session) {
	t := r.getOrCreate(conversationID)

	t.mu.Lock()
	t.subscribers[s.ID] = s
	t.mu.Unlock()

	r.mu.Lock()
	memberships := r.sessionTopics[s.ID]
	if memberships == nil {
		memberships = make(map[uuid.UUID]struct{})
		r.sessionTopics[s.ID] = memberships
	}
	memberships[conversationID] = struct{}{}
	r.mu.Unlock()
}

// Unsubscribe removes the session from the conversation topic. Removing a
// session that is not subscribed is a no-op.
func (r *TopicRegistry) Unsubscribe(conversationID uuid.UUID, s *Session) {
	r.mu.RLock()
	t := r.topics[conversationID]
	r.mu.RUnlock()
	if t == nil {
		return
	}

	t.mu.Lock()
	delete(t.subscribers, s.ID)
	t.mu.Unlock()

	r.mu.Lock()
	if memberships, ok := r.sessionTopics[s.ID]; ok {
		delete(memberships, conversationID)
		if len(memberships) == 0 {
			delete(r.sessionTopics, s.ID)
		}
	}
	r.mu.Unlock()
}

// UnsubscribeAll removes the session from every topic it joined. Called on
// disconnect; leaves no pending state behind.
func (r *TopicRegistry) UnsubscribeAll(s *Session) {
	r.mu.Lock()
	memberships := r.sessionTopics[s.ID]
	delete(r.sessionTopics, s.ID)
	topics := make([]*topic, 0, len(memberships))
	for conversationID := range memberships {
		if t := r.topics[conversationID]; t != nil {
			topics = append(topics, t)
		}
	}
	r.mu.Unlock()

	for _, t := range topics {
		t.mu.Lock()
		delete(t.subscribers, s.ID)
		t.mu.Unlock()
	}
}

// Publish runs fn while holding the conversation's publish mutex. Speak and
// read-marking wrap their persist->broadcast sequence in it so events on one
// conversation are observed in persistence order; different conversations
// never block each other.
func (r *TopicRegistry) Publish(conversationID uuid.UUID, fn func()) {
	t := r.getOrCreate(conversationID)
	t.publish.Lock()
	defer t.publish.Unlock()
	fn()
}

// Broadcast delivers the pre-serialized payload to every current subscriber
// of the conversation, skipping all sessions of excludeUserID when it is not
// uuid.Nil. The subscriber set is snapshotted first so no registry lock is
// held while payloads are handed to sessions. Returns the delivered count.
func (r *TopicRegistry) Broadcast(conversationID uuid.UUID, payload []byte, excludeUserID uuid.UUID) int {
	r.mu.RLock()
	t := r.topics[conversationID]
	r.mu.RUnlock()
	if t == nil {
		return 0
	}

	t.mu.RLock()
	targets := make([]*Session, 0, len(t.subscribers))
	for _, sess := range t.subscribers {
		if excludeUserID != uuid.Nil && sess.UserID == excludeUserID {
			continue
		}
		targets = append(targets, sess)
	}
	t.mu.RUnlock()

	delivered := 0
	for _, sess := range targets {
		if err := sess.Deliver(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// Subscribers returns the current subscriber count of a conversation topic.
func (r *TopicRegistry) Subscribers(conversationID uuid.UUID) int {
	r.mu.RLock()
	t := r.topics[conversationID]
	r.mu.RUnlock()
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subscribers)
}
