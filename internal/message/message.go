// Package message defines the immutable chat-message model and the mutable
// queued-message wrapper used while a frame transits the ingest pipeline.
package message

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies what kind of event a parsed envelope represents.
type Type string

const (
	TypeData   Type = "DATA"
	TypeSync   Type = "SYNC"
	TypeEdit   Type = "EDIT"
	TypeDelete Type = "DELETE"
)

// Mention is a single @-mention inside message text.
type Mention struct {
	UUID   string `json:"uuid"`
	Start  int    `json:"start"`
	Length int    `json:"length"`
}

// Attachment describes a downloadable blob attached to a message.
type Attachment struct {
	ID          string `json:"id"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Quote represents a quoted/replied-to message.
type Quote struct {
	ID     int64  `json:"id"`
	Author string `json:"author"`
	Text   string `json:"text,omitempty"`
}

// Reaction represents an emoji reaction to a prior message.
type Reaction struct {
	Emoji            string `json:"emoji"`
	TargetAuthor     string `json:"target_author"`
	TargetTimestamp  int64  `json:"target_timestamp"`
	Remove           bool   `json:"remove"`
}

// Message is the immutable, fully-parsed representation of one chat event.
// Once constructed by the parser it is never mutated.
type Message struct {
	ID        uuid.UUID
	Source    string
	Timestamp int64
	Type      Type
	Text      string
	Group     string

	Mentions    []Mention
	Attachments []Attachment
	Quote       *Quote
	Reaction    *Reaction

	EditTarget   int64
	DeleteTarget int64

	ViewOnce bool
}

// Recipient returns the shard key for dispatch: the group ID for group
// messages, or the source identifier for 1:1 chats.
func (m Message) Recipient() string {
	if m.Group != "" {
		return m.Group
	}
	return m.Source
}

// IsGroup reports whether the message belongs to a group conversation.
func (m Message) IsGroup() bool {
	return m.Group != ""
}

// HasText reports whether the message carries non-empty text, a
// precondition for command matching.
func (m Message) HasText() bool {
	return m.Text != ""
}

// QueuedMessage is the mutable wrapper that travels through the ingress and
// shard queues. raw is kept so a parse failure can still be sent to the DLQ.
type QueuedMessage struct {
	Raw        string
	EnqueuedAt time.Time
	Recipient  string
	Message    *Message
	Ack        func()
}
