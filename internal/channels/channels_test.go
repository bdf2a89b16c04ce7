package channels

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gotd/td/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/tgpilot/internal/bus"
)

func TestBaseChannel_HandleMessage(t *testing.T) {
	mb := bus.NewMessageBus()
	b := &BaseChannel{ChannelName: "test", Bus: mb}

	require.NoError(t, b.HandleMessage(context.Background(), bus.InboundMessage{ChatID: 1, Content: "hello"}))
	assert.Equal(t, 1, mb.InboundSize())

	msg := <-mb.Inbound
	assert.Equal(t, "test", msg.Channel)
	assert.Equal(t, "hello", msg.Content)
}

func TestBaseChannel_HandleMessage_FullBus(t *testing.T) {
	mb := bus.NewMessageBusSize(1)
	b := &BaseChannel{ChannelName: "test", Bus: mb}
	require.NoError(t, b.HandleMessage(context.Background(), bus.InboundMessage{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.HandleMessage(ctx, bus.InboundMessage{}), context.Canceled)
}

func TestTelegramChannel_Interface(t *testing.T) {
	var ch Channel = NewTelegramChannel(TelegramConfig{}, bus.NewMessageBus(), nil)
	assert.Equal(t, "telegram", ch.Name())
	assert.False(t, ch.IsRunning())
}

func TestTelegramChannel_StartWithoutCredentials(t *testing.T) {
	ch := NewTelegramChannel(TelegramConfig{}, bus.NewMessageBus(), nil)
	err := ch.Start(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "api id")
}

func TestTelegramChannel_SendNotConnected(t *testing.T) {
	ch := NewTelegramChannel(TelegramConfig{AppID: 1, AppHash: "x"}, bus.NewMessageBus(), nil)
	assert.ErrorIs(t, ch.Send(context.Background(), bus.OutboundMessage{ChatID: 1, Content: "hi"}), ErrNotConnected)
	assert.ErrorIs(t, ch.SendText(context.Background(), 1, "hi"), ErrNotConnected)

	_, err := ch.FetchPhoto(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestTelegramChannel_SessionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	ch := NewTelegramChannel(TelegramConfig{SessionFile: path}, bus.NewMessageBus(), nil)

	storage, err := ch.sessionStorage(context.Background())
	require.NoError(t, err)
	fs, ok := storage.(*session.FileStorage)
	require.True(t, ok)
	assert.Equal(t, path, fs.Path)
	assert.DirExists(t, filepath.Dir(path))
}

func TestTelegramChannel_BadSessionString(t *testing.T) {
	ch := NewTelegramChannel(TelegramConfig{SessionString: "not-a-session"}, bus.NewMessageBus(), nil)
	_, err := ch.sessionStorage(context.Background())
	assert.Error(t, err)
}

func TestTelegramChannel_StopBeforeStart(t *testing.T) {
	ch := NewTelegramChannel(TelegramConfig{}, bus.NewMessageBus(), nil)
	assert.NoError(t, ch.Stop())
}

type mockChannel struct {
	name    string
	started bool
	stopped bool
	sent    []bus.OutboundMessage
}

func (m *mockChannel) Name() string                  { return m.name }
func (m *mockChannel) Start(_ context.Context) error { m.started = true; return nil }
func (m *mockChannel) Stop() error                   { m.stopped = true; return nil }
func (m *mockChannel) IsRunning() bool               { return m.started && !m.stopped }
func (m *mockChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	m.sent = append(m.sent, msg)
	return nil
}

func TestManager_Register(t *testing.T) {
	mgr := NewManager(nil)
	mgr.Register(&mockChannel{name: "b"})
	mgr.Register(&mockChannel{name: "a"})
	assert.Equal(t, []string{"a", "b"}, mgr.EnabledChannels())
}

func TestManager_Get(t *testing.T) {
	mgr := NewManager(nil)
	ch := &mockChannel{name: "telegram"}
	mgr.Register(ch)
	assert.Equal(t, ch, mgr.Get("telegram"))
	assert.Nil(t, mgr.Get("nonexistent"))
}

func TestManager_Send(t *testing.T) {
	mgr := NewManager(nil)
	first := &mockChannel{name: "telegram"}
	second := &mockChannel{name: "other"}
	mgr.Register(first)
	mgr.Register(second)
	ctx := context.Background()

	require.NoError(t, mgr.Send(ctx, bus.OutboundMessage{Channel: "other", Content: "x"}))
	require.NoError(t, mgr.Send(ctx, bus.OutboundMessage{Content: "y"}))
	assert.Len(t, second.sent, 1)
	require.Len(t, first.sent, 1)
	assert.Equal(t, "y", first.sent[0].Content)

	assert.Error(t, mgr.Send(ctx, bus.OutboundMessage{Channel: "missing"}))
}

func TestManager_StopAll(t *testing.T) {
	mgr := NewManager(nil)
	ch1 := &mockChannel{name: "ch1", started: true}
	ch2 := &mockChannel{name: "ch2", started: true}
	mgr.Register(ch1)
	mgr.Register(ch2)
	mgr.StopAll()
	assert.True(t, ch1.stopped)
	assert.True(t, ch2.stopped)
}

func TestManager_GetStatus(t *testing.T) {
	mgr := NewManager(nil)
	mgr.Register(&mockChannel{name: "up", started: true})
	mgr.Register(&mockChannel{name: "down"})
	status := mgr.GetStatus()
	assert.True(t, status["up"])
	assert.False(t, status["down"])
}
