package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cornellsh/signal-client/internal/message"
)

func TestParse_DataMessage1to1(t *testing.T) {
	raw := `{"envelope":{"source":"15551234","timestamp":1000,"dataMessage":{"message":"!ping"}}}`
	p := New()
	m, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, message.TypeData, m.Type)
	assert.Equal(t, "+15551234", m.Source)
	assert.Equal(t, "+15551234", m.Recipient())
	assert.Equal(t, "!ping", m.Text)
}

func TestParse_GroupMessage(t *testing.T) {
	raw := `{"envelope":{"source":"+15551234","timestamp":2,"dataMessage":{"message":"hi","groupInfo":{"groupId":"g1"}}}}`
	p := New()
	m, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "g1", m.Recipient())
	assert.True(t, m.IsGroup())
}

func TestParse_SyncMessageTaggedDistinctly(t *testing.T) {
	raw := `{"envelope":{"source":"+1","timestamp":3,"syncMessage":{"sentMessage":{"message":"echo"}}}}`
	p := New()
	m, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, message.TypeSync, m.Type)
	assert.Equal(t, "echo", m.Text)
}

func TestParse_EditMessage(t *testing.T) {
	raw := `{"envelope":{"source":"+1","timestamp":4,"dataMessage":{"message":"edited","targetSentTimestamp":3}}}`
	p := New()
	m, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, message.TypeEdit, m.Type)
	assert.EqualValues(t, 3, m.EditTarget)
}

func TestParse_DeleteMessageRequiresTarget(t *testing.T) {
	raw := `{"envelope":{"source":"+1","timestamp":5,"dataMessage":{"remoteDelete":{}}}}`
	p := New()
	_, err := p.Parse(raw)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParse_ReactionMessage(t *testing.T) {
	raw := `{"envelope":{"source":"+1","timestamp":6,"dataMessage":{"reaction":{"emoji":"👍","targetAuthorNumber":"+2","targetSentTimestamp":5}}}}`
	p := New()
	m, err := p.Parse(raw)
	require.NoError(t, err)
	require.NotNil(t, m.Reaction)
	assert.Equal(t, "👍", m.Reaction.Emoji)
	assert.EqualValues(t, 5, m.Reaction.TargetTimestamp)
}

func TestParse_Unsupported(t *testing.T) {
	raw := `{"envelope":{"source":"+1","timestamp":1,"receiptMessage":{}}}`
	p := New()
	_, err := p.Parse(raw)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestParse_InvalidJSON(t *testing.T) {
	p := New()
	_, err := p.Parse("not json")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParse_MissingSource(t *testing.T) {
	raw := `{"envelope":{"timestamp":1,"dataMessage":{"message":"hi"}}}`
	p := New()
	_, err := p.Parse(raw)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestCanonicalizeSource(t *testing.T) {
	assert.Equal(t, "+15551234", canonicalizeSource("15551234"))
	assert.Equal(t, "+15551234", canonicalizeSource("+15551234"))
	assert.Equal(t, "abc-uuid", canonicalizeSource("abc-uuid"))
}

func TestRecipientFromRaw(t *testing.T) {
	p := New()
	raw := `{"envelope":{"source":"+1","timestamp":1,"dataMessage":{"message":"hi","groupInfo":{"groupId":"g9"}}}}`
	assert.Equal(t, "g9", p.RecipientFromRaw(raw))
	assert.Equal(t, "", p.RecipientFromRaw("garbage"))
}
