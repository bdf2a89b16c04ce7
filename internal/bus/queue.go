package bus

import (
	"context"
	"sync/atomic"
)

// DefaultBufferSize is the inbound queue capacity.
const DefaultBufferSize = 100

// Handler processes one inbound message.
type Handler func(ctx context.Context, msg InboundMessage)

// MessageBus queues inbound messages from channels for a single consumer.
// Messages are handed to the consumer one at a time, in arrival order.
type MessageBus struct {
	Inbound chan InboundMessage

	published atomic.Int64
	handled   atomic.Int64
}

// NewMessageBus creates a new message bus with a buffered inbound queue.
func NewMessageBus() *MessageBus {
	return NewMessageBusSize(DefaultBufferSize)
}

// NewMessageBusSize creates a bus with the given inbound capacity.
func NewMessageBusSize(size int) *MessageBus {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &MessageBus{Inbound: make(chan InboundMessage, size)}
}

// PublishInbound queues a message. It blocks while the queue is full and
// gives up when ctx is done.
func (b *MessageBus) PublishInbound(ctx context.Context, msg InboundMessage) error {
	select {
	case b.Inbound <- msg:
		b.published.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume feeds queued messages to handler sequentially. Blocks until ctx is cancelled.
func (b *MessageBus) Consume(ctx context.Context, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.Inbound:
			handler(ctx, msg)
			b.handled.Add(1)
		}
	}
}

// InboundSize returns the number of pending inbound messages.
func (b *MessageBus) InboundSize() int {
	return len(b.Inbound)
}

// Stats returns how many messages were published and handled so far.
func (b *MessageBus) Stats() (published, handled int64) {
	return b.published.Load(), b.handled.Load()
}
