package dispatcher

import (
	"sort"
	"sync"
)

// AutoProcess holds the global and per-conversation switches for photo auto-matching.
type AutoProcess struct {
	mu     sync.RWMutex
	global bool
	chats  map[int64]bool
}

// NewAutoProcess creates the switches with initial values.
func NewAutoProcess(global bool, chats ...int64) *AutoProcess {
	a := &AutoProcess{global: global, chats: make(map[int64]bool)}
	for _, c := range chats {
		a.chats[c] = true
	}
	return a
}

// Enabled reports whether photos in chat should be matched.
func (a *AutoProcess) Enabled(chat int64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.global || a.chats[chat]
}

// Global reports the global switch.
func (a *AutoProcess) Global() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.global
}

// ChatEnabled reports the switch for chat alone.
func (a *AutoProcess) ChatEnabled(chat int64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.chats[chat]
}

// SetGlobal flips the global switch.
func (a *AutoProcess) SetGlobal(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.global = on
}

// SetChat flips the switch for one conversation.
func (a *AutoProcess) SetChat(chat int64, on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if on {
		a.chats[chat] = true
	} else {
		delete(a.chats, chat)
	}
}

// Chats returns the conversations with the switch on, sorted.
func (a *AutoProcess) Chats() []int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]int64, 0, len(a.chats))
	for c := range a.chats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
