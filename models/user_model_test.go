package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDisplayNameFallsBackToEmailLocalPart(t *testing.T) {
	named := User{FullName: "Grace Wambui", Email: "grace@example.com"}
	assert.Equal(t, "Grace Wambui", named.DisplayName())

	unnamed := User{Email: "grace.wambui@example.com"}
	assert.Equal(t, "grace.wambui", unnamed.DisplayName())

	odd := User{Email: "@example.com"}
	assert.Equal(t, "@example.com", odd.DisplayName())
}

func TestCanonicalPairOrdersLexicographically(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff")

	one, two := CanonicalPair(a, b)
	assert.Equal(t, a, one)
	assert.Equal(t, b, two)

	one, two = CanonicalPair(b, a)
	assert.Equal(t, a, one)
	assert.Equal(t, b, two)
}

func TestMessageTypeValid(t *testing.T) {
	assert.True(t, MessageTypeText.Valid())
	assert.True(t, MessageTypeBookingRequest.Valid())
	assert.True(t, MessageTypeSystem.Valid())
	assert.False(t, MessageType("gif").Valid())
	assert.False(t, MessageType("").Valid())
}
