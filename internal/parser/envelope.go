// Package parser turns opaque Signal gateway JSON frames into the typed
// message.Message the rest of the runtime dispatches on.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cornellsh/signal-client/internal/message"
)

// ErrUnsupported is raised for envelopes that carry no dataMessage or
// syncMessage.sentMessage payload (receipts, typing indicators, keep-alives).
// Callers must drop these silently, not send them to the dead-letter queue.
var ErrUnsupported = errors.New("parser: unsupported envelope")

// ParseError wraps a malformed frame or a missing required field. Unlike
// ErrUnsupported, a ParseError routes to the dead-letter queue.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parser: %s", e.Reason)
}

// envelope mirrors the fields of the gateway's JSON frame that the parser
// consumes. Everything else is ignored.
type envelopeFrame struct {
	Envelope struct {
		Source       string `json:"source"`
		SourceNumber string `json:"sourceNumber"`
		SourceUUID   string `json:"sourceUuid"`
		Timestamp    int64  `json:"timestamp"`

		DataMessage  *dataMessagePayload `json:"dataMessage"`
		SyncMessage  *struct {
			SentMessage *dataMessagePayload `json:"sentMessage"`
		} `json:"syncMessage"`
	} `json:"envelope"`
}

type dataMessagePayload struct {
	Message   string `json:"message"`
	GroupInfo *struct {
		GroupID string `json:"groupId"`
	} `json:"groupInfo"`
	Mentions []struct {
		UUID   string `json:"uuid"`
		Start  int    `json:"start"`
		Length int    `json:"length"`
	} `json:"mentions"`
	Attachments []struct {
		ID          string `json:"id"`
		ContentType string `json:"contentType"`
		Filename    string `json:"filename"`
		Size        int64  `json:"size"`
	} `json:"attachments"`
	Quote *struct {
		ID     int64  `json:"id"`
		Author string `json:"author"`
		Text   string `json:"text"`
	} `json:"quote"`
	Reaction *struct {
		Emoji           string `json:"emoji"`
		TargetAuthor    string `json:"targetAuthorNumber"`
		TargetTimestamp int64  `json:"targetSentTimestamp"`
		Remove          bool   `json:"remove"`
	} `json:"reaction"`
	RemoteDelete *struct {
		Timestamp int64 `json:"timestamp"`
	} `json:"remoteDelete"`
	EditTimestamp       int64 `json:"editTimestamp"`
	TargetSentTimestamp int64 `json:"targetSentTimestamp"`
	ViewOnce            bool  `json:"viewOnce"`
}

// Parser classifies and decodes raw frames into message.Message values.
type Parser struct{}

// New constructs a Parser. It holds no state; a zero value works too.
func New() *Parser {
	return &Parser{}
}

// Parse decodes a single JSON frame. It returns ErrUnsupported for envelopes
// with no dataMessage/syncMessage payload, and a *ParseError for malformed
// JSON or envelopes missing required fields.
func (p *Parser) Parse(raw string) (*message.Message, error) {
	var frame envelopeFrame
	if err := json.Unmarshal([]byte(raw), &frame); err != nil {
		return nil, &ParseError{Raw: raw, Reason: "invalid JSON: " + err.Error()}
	}

	env := frame.Envelope
	if env.Source == "" {
		return nil, &ParseError{Raw: raw, Reason: "missing envelope.source"}
	}
	if env.Timestamp == 0 {
		return nil, &ParseError{Raw: raw, Reason: "missing envelope.timestamp"}
	}

	payload := env.DataMessage
	isSync := false
	if payload == nil && env.SyncMessage != nil && env.SyncMessage.SentMessage != nil {
		payload = env.SyncMessage.SentMessage
		isSync = true
	}
	if payload == nil {
		return nil, ErrUnsupported
	}

	msg := &message.Message{
		ID:        uuid.New(),
		Source:    canonicalizeSource(env.Source),
		Timestamp: env.Timestamp,
		Text:      payload.Message,
		ViewOnce:  payload.ViewOnce,
	}

	if payload.GroupInfo != nil {
		msg.Group = payload.GroupInfo.GroupID
	}

	for _, m := range payload.Mentions {
		msg.Mentions = append(msg.Mentions, message.Mention{
			UUID: m.UUID, Start: m.Start, Length: m.Length,
		})
	}
	for _, a := range payload.Attachments {
		msg.Attachments = append(msg.Attachments, message.Attachment{
			ID: a.ID, ContentType: a.ContentType, Filename: a.Filename, Size: a.Size,
		})
	}
	if payload.Quote != nil {
		msg.Quote = &message.Quote{
			ID: payload.Quote.ID, Author: payload.Quote.Author, Text: payload.Quote.Text,
		}
	}

	switch {
	case payload.RemoteDelete != nil:
		msg.Type = message.TypeDelete
		msg.DeleteTarget = payload.RemoteDelete.Timestamp
		if msg.DeleteTarget == 0 {
			return nil, &ParseError{Raw: raw, Reason: "delete message missing target_timestamp"}
		}
	case payload.Reaction != nil:
		msg.Type = message.TypeData
		msg.Reaction = &message.Reaction{
			Emoji:           payload.Reaction.Emoji,
			TargetAuthor:    canonicalizeSource(payload.Reaction.TargetAuthor),
			TargetTimestamp: payload.Reaction.TargetTimestamp,
			Remove:          payload.Reaction.Remove,
		}
		if msg.Reaction.TargetTimestamp == 0 {
			return nil, &ParseError{Raw: raw, Reason: "reaction missing target_timestamp"}
		}
	case payload.EditTimestamp != 0 || payload.TargetSentTimestamp != 0:
		msg.Type = message.TypeEdit
		msg.EditTarget = payload.TargetSentTimestamp
		if msg.EditTarget == 0 {
			msg.EditTarget = payload.EditTimestamp
		}
		if msg.EditTarget == 0 {
			return nil, &ParseError{Raw: raw, Reason: "edit message missing target_timestamp"}
		}
	case isSync:
		msg.Type = message.TypeSync
	default:
		msg.Type = message.TypeData
	}

	return msg, nil
}

// RecipientFromRaw makes a best-effort extraction of the shard key by running
// the full Parse on raw; it returns "" when the frame does not parse. The
// distributor uses it as a fallback when a message's recipient is empty.
func (p *Parser) RecipientFromRaw(raw string) string {
	msg, err := p.Parse(raw)
	if err != nil || msg == nil {
		return ""
	}
	return msg.Recipient()
}

// canonicalizeSource prefixes a purely-numeric identifier with "+"; existing
// "+"-prefixed or non-phone identifiers pass through unchanged.
func canonicalizeSource(id string) string {
	if id == "" {
		return id
	}
	if strings.HasPrefix(id, "+") {
		return id
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return id
		}
	}
	return "+" + id
}
