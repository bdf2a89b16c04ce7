package channels

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gotd/td/tg"
)

// ErrUnknownPeer is returned when a conversation was never seen in an update.
var ErrUnknownPeer = errors.New("channels: unknown peer")

// channelIDOffset is the marked-id offset used for channels and supergroups,
// so that users, basic groups and channels share one signed id space.
const channelIDOffset int64 = 1_000_000_000_000

// PeerKind tells which id space a marked id belongs to.
type PeerKind int

const (
	PeerUser PeerKind = iota
	PeerChat
	PeerChannel
)

// MarkedID folds a peer into a single conversation key:
// users keep their id, chats are negated, channels are -(1e12 + id).
func MarkedID(p tg.PeerClass) int64 {
	switch v := p.(type) {
	case *tg.PeerUser:
		return v.UserID
	case *tg.PeerChat:
		return -v.ChatID
	case *tg.PeerChannel:
		return -(channelIDOffset + v.ChannelID)
	}
	return 0
}

// UnmarkID is the inverse of MarkedID.
func UnmarkID(marked int64) (PeerKind, int64) {
	switch {
	case marked >= 0:
		return PeerUser, marked
	case marked <= -channelIDOffset:
		return PeerChannel, -marked - channelIDOffset
	default:
		return PeerChat, -marked
	}
}

// PeerCache remembers input peers (with access hashes) seen in updates.
type PeerCache struct {
	mu    sync.RWMutex
	peers map[int64]tg.InputPeerClass
}

// NewPeerCache creates an empty cache.
func NewPeerCache() *PeerCache {
	return &PeerCache{peers: make(map[int64]tg.InputPeerClass)}
}

// Learn records every user, chat and channel carried by an update.
func (c *PeerCache) Learn(e tg.Entities) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, u := range e.Users {
		if u == nil || u.Min {
			continue
		}
		c.peers[id] = &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}
	}
	for id, ch := range e.Chats {
		if ch == nil {
			continue
		}
		c.peers[-id] = &tg.InputPeerChat{ChatID: ch.ID}
	}
	for id, ch := range e.Channels {
		if ch == nil || ch.Min {
			continue
		}
		c.peers[-(channelIDOffset + id)] = &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}
	}
}

// Put stores a peer under its marked id.
func (c *PeerCache) Put(marked int64, p tg.InputPeerClass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers[marked] = p
}

// Resolve returns the input peer for a marked id. Basic groups need no
// access hash, so they resolve even when never cached.
func (c *PeerCache) Resolve(marked int64) (tg.InputPeerClass, error) {
	c.mu.RLock()
	p, ok := c.peers[marked]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}
	if kind, id := UnmarkID(marked); kind == PeerChat {
		return &tg.InputPeerChat{ChatID: id}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownPeer, marked)
}

// Len returns the number of cached peers.
func (c *PeerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.peers)
}

// inputChannel converts a cached channel peer for channel-only methods.
func inputChannel(p tg.InputPeerClass) (*tg.InputChannel, bool) {
	ch, ok := p.(*tg.InputPeerChannel)
	if !ok {
		return nil, false
	}
	return &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash}, true
}
