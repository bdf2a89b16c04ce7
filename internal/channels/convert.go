package channels

import (
	"time"

	"github.com/gotd/td/tg"

	"github.com/dayuer/tgpilot/internal/bus"
)

// toInbound converts an MTProto message into a bus message. Messages sent by
// the logged-in account get selfID as sender, since owner commands are
// usually typed from that same account. Service and empty messages are skipped.
func toInbound(msg tg.MessageClass, selfID int64) (bus.InboundMessage, bool) {
	m, ok := msg.(*tg.Message)
	if !ok || m.PeerID == nil {
		return bus.InboundMessage{}, false
	}

	chatID := MarkedID(m.PeerID)
	in := bus.InboundMessage{
		MessageID: m.ID,
		ChatID:    chatID,
		Content:   m.Message,
		Timestamp: time.Unix(int64(m.Date), 0),
		Outgoing:  m.Out,
		Photo:     photoFromMedia(m.Media),
		SenderID:  senderOf(m, chatID, selfID),
	}
	if h, ok := m.ReplyTo.(*tg.MessageReplyHeader); ok {
		in.ReplyToID = h.ReplyToMsgID
	}
	return in, true
}

func senderOf(m *tg.Message, chatID, selfID int64) int64 {
	switch {
	case m.Out:
		return selfID
	case m.FromID != nil:
		return MarkedID(m.FromID)
	default:
		// Private chats omit from_id; channel posts are authored by the channel.
		return chatID
	}
}

func photoFromMedia(media tg.MessageMediaClass) *bus.Photo {
	mp, ok := media.(*tg.MessageMediaPhoto)
	if !ok || mp.Photo == nil {
		return nil
	}
	p, ok := mp.Photo.(*tg.Photo)
	if !ok {
		return nil
	}
	return &bus.Photo{ID: p.ID, AccessHash: p.AccessHash}
}

// findMessage picks the message with id out of a getMessages response.
func findMessage(res tg.MessagesMessagesClass, id int) (*tg.Message, bool) {
	var list []tg.MessageClass
	switch v := res.(type) {
	case *tg.MessagesMessages:
		list = v.Messages
	case *tg.MessagesMessagesSlice:
		list = v.Messages
	case *tg.MessagesChannelMessages:
		list = v.Messages
	}
	for _, mc := range list {
		if m, ok := mc.(*tg.Message); ok && m.ID == id {
			return m, true
		}
	}
	return nil, false
}
