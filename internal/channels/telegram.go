package channels

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/html"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/dayuer/tgpilot/internal/bus"
	"github.com/dayuer/tgpilot/internal/utils"
)

// ErrNotAuthorized is returned when the session is not logged in and no
// interactive login is possible.
var ErrNotAuthorized = errors.New("telegram: session not authorized, run `tgpilot onboard`")

// CodePrompt asks the operator for the login code Telegram sent.
type CodePrompt func(ctx context.Context) (string, error)

// TelegramConfig holds MTProto credentials.
type TelegramConfig struct {
	AppID   int
	AppHash string
	// SessionString is a Telethon StringSession. It takes precedence over SessionFile.
	SessionString string
	SessionFile   string
	Phone         string
	Password      string
}

// TelegramChannel is a user-account Telegram client over MTProto.
type TelegramChannel struct {
	BaseChannel
	cfg    TelegramConfig
	log    *zap.Logger
	peers  *PeerCache
	prompt CodePrompt

	selfID atomic.Int64

	mu       sync.RWMutex
	api      *tg.Client
	sender   *message.Sender
	cancelFn context.CancelFunc
}

// TelegramOption configures a TelegramChannel.
type TelegramOption func(*TelegramChannel)

// WithCodePrompt enables interactive phone-code login.
func WithCodePrompt(p CodePrompt) TelegramOption {
	return func(t *TelegramChannel) { t.prompt = p }
}

// NewTelegramChannel creates a TelegramChannel.
func NewTelegramChannel(cfg TelegramConfig, msgBus *bus.MessageBus, logger *zap.Logger, opts ...TelegramOption) *TelegramChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &TelegramChannel{
		BaseChannel: BaseChannel{
			ChannelName: "telegram",
			Bus:         msgBus,
		},
		cfg:   cfg,
		log:   logger.Named("telegram"),
		peers: NewPeerCache(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TelegramChannel) Name() string { return "telegram" }

// SelfID returns the logged-in account id, zero before the first login.
func (t *TelegramChannel) SelfID() int64 { return t.selfID.Load() }

// Start connects, authorises and listens for new messages until ctx is
// cancelled or the connection drops.
func (t *TelegramChannel) Start(ctx context.Context) error {
	if t.cfg.AppID == 0 || t.cfg.AppHash == "" {
		return fmt.Errorf("telegram api id/hash not configured")
	}
	ctx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.cancelFn = cancel
	t.mu.Unlock()
	defer cancel()

	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		return t.onMessage(ctx, e, u.Message)
	})
	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		return t.onMessage(ctx, e, u.Message)
	})

	client, err := t.newClient(ctx, dispatcher)
	if err != nil {
		return err
	}
	err = client.Run(ctx, func(ctx context.Context) error {
		self, err := t.authorize(ctx, client)
		if err != nil {
			return err
		}
		t.selfID.Store(self.ID)
		t.peers.Put(self.ID, &tg.InputPeerSelf{})

		api := client.API()
		t.mu.Lock()
		t.api = api
		t.sender = message.NewSender(api)
		t.mu.Unlock()
		t.setRunning(true)
		t.log.Info("Telegram client connected", zap.Int64("self_id", self.ID), zap.String("username", self.Username))

		<-ctx.Done()
		return ctx.Err()
	})

	t.setRunning(false)
	t.mu.Lock()
	t.api, t.sender = nil, nil
	t.mu.Unlock()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Login runs the interactive login flow and returns the account. The
// session is persisted to the configured file storage.
func (t *TelegramChannel) Login(ctx context.Context) (*tg.User, error) {
	client, err := t.newClient(ctx, nil)
	if err != nil {
		return nil, err
	}
	var self *tg.User
	err = client.Run(ctx, func(ctx context.Context) error {
		var authErr error
		self, authErr = t.authorize(ctx, client)
		return authErr
	})
	if err != nil {
		return nil, err
	}
	return self, nil
}

func (t *TelegramChannel) newClient(ctx context.Context, handler telegram.UpdateHandler) (*telegram.Client, error) {
	storage, err := t.sessionStorage(ctx)
	if err != nil {
		return nil, err
	}
	opts := telegram.Options{
		Logger:         t.log.Named("mtproto"),
		SessionStorage: storage,
	}
	if handler != nil {
		opts.UpdateHandler = handler
	}
	return telegram.NewClient(t.cfg.AppID, t.cfg.AppHash, opts), nil
}

// sessionStorage loads a Telethon string session into memory, or falls back
// to a session file on disk.
func (t *TelegramChannel) sessionStorage(ctx context.Context) (telegram.SessionStorage, error) {
	if t.cfg.SessionString != "" {
		data, err := session.TelethonSession(t.cfg.SessionString)
		if err != nil {
			return nil, fmt.Errorf("telegram: decode session string: %w", err)
		}
		storage := new(session.StorageMemory)
		loader := session.Loader{Storage: storage}
		if err := loader.Save(ctx, data); err != nil {
			return nil, fmt.Errorf("telegram: load session string: %w", err)
		}
		return storage, nil
	}

	path := t.cfg.SessionFile
	if path == "" {
		path = filepath.Join(utils.GetDataPath(), "session.json")
	}
	path = utils.ExpandHome(path)
	if _, err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("telegram: session dir: %w", err)
	}
	return &session.FileStorage{Path: path}, nil
}

func (t *TelegramChannel) authorize(ctx context.Context, client *telegram.Client) (*tg.User, error) {
	status, err := client.Auth().Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("telegram: auth status: %w", err)
	}
	if status.Authorized && status.User != nil {
		return status.User, nil
	}
	if t.prompt == nil || t.cfg.Phone == "" {
		return nil, ErrNotAuthorized
	}

	flow := auth.NewFlow(
		auth.Constant(t.cfg.Phone, t.cfg.Password, auth.CodeAuthenticatorFunc(
			func(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
				t.log.Info("Waiting for login code")
				return t.prompt(ctx)
			})),
		auth.SendCodeOptions{},
	)
	if err := client.Auth().IfNecessary(ctx, flow); err != nil {
		return nil, fmt.Errorf("telegram: login: %w", err)
	}
	self, err := client.Self(ctx)
	if err != nil {
		return nil, fmt.Errorf("telegram: self: %w", err)
	}
	return self, nil
}

func (t *TelegramChannel) onMessage(ctx context.Context, e tg.Entities, mc tg.MessageClass) error {
	t.peers.Learn(e)
	msg, ok := toInbound(mc, t.SelfID())
	if !ok {
		return nil
	}
	if err := t.HandleMessage(ctx, msg); err != nil {
		t.log.Warn("Dropping inbound message", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
	return nil
}

// Stop cancels a running Start.
func (t *TelegramChannel) Stop() error {
	t.mu.RLock()
	cancel := t.cancelFn
	t.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Send delivers msg. Styled content is rendered from markdown to HTML and
// resent as plain text if Telegram rejects the markup.
func (t *TelegramChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	t.mu.RLock()
	sender := t.sender
	t.mu.RUnlock()
	if sender == nil {
		return ErrNotConnected
	}
	peer, err := t.peers.Resolve(msg.ChatID)
	if err != nil {
		return err
	}

	builder := &sender.To(peer).Builder
	if msg.ReplyTo != 0 {
		builder = builder.Reply(msg.ReplyTo)
	}
	if msg.Styled {
		_, err = builder.StyledText(ctx, html.String(nil, MarkdownToTelegramHTML(msg.Content)))
		if err == nil {
			return nil
		}
		t.log.Debug("Styled send failed, retrying as plain text", zap.Error(err))
	}
	if _, err = builder.Text(ctx, msg.Content); err != nil {
		return fmt.Errorf("telegram: send to %d: %w", msg.ChatID, err)
	}
	return nil
}

// SendText posts a plain message to a conversation.
func (t *TelegramChannel) SendText(ctx context.Context, chatID int64, text string) error {
	return t.Send(ctx, bus.OutboundMessage{Channel: t.Name(), ChatID: chatID, Content: text})
}

// FetchPhoto returns the photo attached to message messageID in chatID, or
// nil if that message has none.
func (t *TelegramChannel) FetchPhoto(ctx context.Context, chatID int64, messageID int) (*bus.Photo, error) {
	t.mu.RLock()
	api := t.api
	t.mu.RUnlock()
	if api == nil {
		return nil, ErrNotConnected
	}

	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: messageID}}
	var (
		res tg.MessagesMessagesClass
		err error
	)
	if kind, _ := UnmarkID(chatID); kind == PeerChannel {
		peer, rerr := t.peers.Resolve(chatID)
		if rerr != nil {
			return nil, rerr
		}
		ch, ok := inputChannel(peer)
		if !ok {
			return nil, fmt.Errorf("%w: %d is not a channel", ErrUnknownPeer, chatID)
		}
		res, err = api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{Channel: ch, ID: ids})
	} else {
		res, err = api.MessagesGetMessages(ctx, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("telegram: get message %d: %w", messageID, err)
	}

	m, ok := findMessage(res, messageID)
	if !ok {
		return nil, nil
	}
	return photoFromMedia(m.Media), nil
}
