package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverAfterCloseFails(t *testing.T) {
	sess := NewSession(uuid.New(), "alice")
	sess.Close()
	sess.Close() // idempotent

	err := sess.Deliver([]byte(`{}`))
	require.ErrorIs(t, err, ErrSessionClosed)

	select {
	case <-sess.Done():
	default:
		t.Fatal("Done should be closed")
	}
}

func TestDeliverClosesSessionWhenBufferFills(t *testing.T) {
	sess := NewSession(uuid.New(), "slow-client")

	for i := 0; i < sessionSendBuffer; i++ {
		require.NoError(t, sess.Deliver([]byte(`{}`)))
	}

	// The overflowing delivery fails and tears the session down.
	err := sess.Deliver([]byte(`{}`))
	require.Error(t, err)

	select {
	case <-sess.Done():
	default:
		t.Fatal("session should be closed after overflow")
	}
	assert.ErrorIs(t, sess.Deliver([]byte(`{}`)), ErrSessionClosed)
}
