// Package channels connects chat platforms to the message bus.
package channels

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/dayuer/tgpilot/internal/bus"
)

// ErrNotConnected is returned by Send while the channel has no live session.
var ErrNotConnected = errors.New("channel not connected")

// Channel is the interface that all chat platform integrations must implement.
type Channel interface {
	// Name returns the channel identifier (e.g., "telegram").
	Name() string

	// Start connects to the platform and begins listening. Blocks until ctx
	// is cancelled or the connection is lost.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop() error

	// Send delivers an outbound message through this channel.
	Send(ctx context.Context, msg bus.OutboundMessage) error

	// IsRunning returns whether the channel is active.
	IsRunning() bool
}

// BaseChannel provides shared logic for all channel implementations.
type BaseChannel struct {
	ChannelName string
	Bus         *bus.MessageBus

	running atomic.Bool
}

// IsRunning reports whether the channel marked itself as connected.
func (b *BaseChannel) IsRunning() bool { return b.running.Load() }

func (b *BaseChannel) setRunning(v bool) { b.running.Store(v) }

// HandleMessage stamps the channel name and publishes msg to the bus.
func (b *BaseChannel) HandleMessage(ctx context.Context, msg bus.InboundMessage) error {
	msg.Channel = b.ChannelName
	return b.Bus.PublishInbound(ctx, msg)
}
