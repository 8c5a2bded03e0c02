package realtime

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

const sessionSendBuffer = 128

var ErrSessionClosed = errors.New("realtime: session closed")

// Session is one live client connection. Outbound payloads go through a
// buffered channel drained by the transport's write pump, so broadcasters
// never block on a slow socket. A user may hold several sessions at once
// (one per device or tab).
type Session struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	UserName string

	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewSession(userID uuid.UUID, userName string) *Session {
	return &Session{
		ID:       uuid.New(),
		UserID:   userID,
		UserName: userName,
		send:     make(chan []byte, sessionSendBuffer),
		done:     make(chan struct{}),
	}
}

// Deliver enqueues payload for the write pump. A full buffer means the
// client cannot keep up; the session is closed to keep backpressure bounded.
func (s *Session) Deliver(payload []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.send <- payload:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		s.Close()
		return errors.New("realtime: session send buffer exceeded")
	}
}

// Outbox is read by the transport write pump.
func (s *Session) Outbox() <-chan []byte { return s.send }

// Done is closed when the session will accept no further payloads.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}
