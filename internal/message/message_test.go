package message

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRecipient_GroupWinsOverSource(t *testing.T) {
	m := Message{Source: "+15551234", Group: "group-abc"}
	assert.Equal(t, "group-abc", m.Recipient())
}

func TestRecipient_FallsBackToSource(t *testing.T) {
	m := Message{Source: "+15551234"}
	assert.Equal(t, "+15551234", m.Recipient())
}

func TestHasText(t *testing.T) {
	assert.False(t, Message{}.HasText())
	assert.True(t, Message{Text: "!ping"}.HasText())
}

func TestIsGroup(t *testing.T) {
	assert.True(t, Message{Group: "g1"}.IsGroup())
	assert.False(t, Message{}.IsGroup())
}

func TestMessageIDHoldsAssignedUUID(t *testing.T) {
	m := Message{ID: uuid.New()}
	assert.NotEqual(t, uuid.Nil, m.ID)
}
