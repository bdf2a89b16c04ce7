// Package bus carries chat events from the transport to the command dispatcher.
package bus

import "time"

// Photo identifies a photo attachment.
type Photo struct {
	ID         int64 `json:"id"`
	AccessHash int64 `json:"access_hash"`
}

// InboundMessage is received from a chat channel.
type InboundMessage struct {
	Channel   string         `json:"channel"`
	MessageID int            `json:"message_id"`
	SenderID  int64          `json:"sender_id"`
	ChatID    int64          `json:"chat_id"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Outgoing  bool           `json:"outgoing,omitempty"`
	Photo     *Photo         `json:"photo,omitempty"`
	ReplyToID int            `json:"reply_to_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// HasPhoto reports whether the message carries a photo.
func (m *InboundMessage) HasPhoto() bool {
	return m.Photo != nil
}

// OutboundMessage is sent to a chat channel.
type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  int64  `json:"chat_id"`
	Content string `json:"content"`
	ReplyTo int    `json:"reply_to,omitempty"`
	// Styled marks Content as markdown to be rendered by the channel.
	Styled bool `json:"styled,omitempty"`
}
