// Package dispatcher turns inbound Telegram events into supervisor and label
// store operations. Only the configured owner may issue commands.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dayuer/tgpilot/internal/bus"
	"github.com/dayuer/tgpilot/internal/clock"
	"github.com/dayuer/tgpilot/internal/labels"
	"github.com/dayuer/tgpilot/internal/supervisor"
)

const (
	DefaultMatchTemplate     = "%s"
	DefaultUnrecognizedReply = "❓ Unknown image"
)

// Tasks is the part of the supervisor the dispatcher drives.
type Tasks interface {
	Start(key int64, payload string, interval time.Duration) error
	Stop(key int64) error
	StopAll() int
	ActiveCount() int
	List() []supervisor.TaskInfo
	Policy() supervisor.Policy
}

// LabelStore is the writable side of the label store.
type LabelStore interface {
	Add(ctx context.Context, imageID, label string) error
	Len() int
}

// Resolver maps an image id to its label.
type Resolver interface {
	Resolve(imageID string) (string, bool)
}

// Replier delivers outbound messages.
type Replier interface {
	Send(ctx context.Context, msg bus.OutboundMessage) error
}

// ChannelStatus reports which transports are connected.
type ChannelStatus interface {
	EnabledChannels() []string
	GetStatus() map[string]bool
}

// QueueStats reports inbound queue counters.
type QueueStats interface {
	Stats() (published, handled int64)
	InboundSize() int
}

// PhotoFetcher loads the photo attached to an earlier message.
type PhotoFetcher interface {
	FetchPhoto(ctx context.Context, chatID int64, messageID int) (*bus.Photo, error)
}

// Config is immutable after construction.
type Config struct {
	OwnerID           int64
	TriggerBotID      int64
	TriggerKeyword    string
	MatchTemplate     string
	UnrecognizedReply string
}

// Deps carries the shared components built once at startup.
type Deps struct {
	Tasks       Tasks
	Labels      LabelStore
	Matcher     Resolver
	Uptime      *clock.Tracker
	AutoProcess *AutoProcess
	Replier     Replier
	Photos      PhotoFetcher  // optional
	Channels    ChannelStatus // optional
	Queue       QueueStats    // optional
	Logger      *zap.Logger
}

// Dispatcher routes inbound messages.
type Dispatcher struct {
	cfg  Config
	deps Deps
	log  *zap.Logger
}

// New creates a dispatcher. Missing optional deps get harmless defaults.
func New(cfg Config, deps Deps) *Dispatcher {
	if cfg.MatchTemplate == "" {
		cfg.MatchTemplate = DefaultMatchTemplate
	}
	if cfg.UnrecognizedReply == "" {
		cfg.UnrecognizedReply = DefaultUnrecognizedReply
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Uptime == nil {
		deps.Uptime = clock.NewTracker(nil)
	}
	if deps.AutoProcess == nil {
		deps.AutoProcess = NewAutoProcess(false)
	}
	return &Dispatcher{cfg: cfg, deps: deps, log: deps.Logger.Named("dispatcher")}
}

// bareCommands only match when sent without arguments.
var bareCommands = map[string]bool{
	"stop_spam":           true,
	"stop_all_spam":       true,
	"spam_list":           true,
	"status":              true,
	"help":                true,
	"autoprocess_on":      true,
	"autoprocess_off":     true,
	"autoprocess_on_all":  true,
	"autoprocess_off_all": true,
}

// Handle processes one inbound message. It never panics.
func (d *Dispatcher) Handle(ctx context.Context, msg bus.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panic",
				zap.Any("panic", r),
				zap.Int64("chat_id", msg.ChatID),
				zap.Int("message_id", msg.MessageID))
		}
	}()

	if msg.SenderID != d.cfg.OwnerID || d.cfg.OwnerID == 0 {
		if d.shouldMatch(msg) {
			d.matchPhoto(ctx, msg)
			return
		}
		d.log.Debug("dropping message from non-owner",
			zap.Int64("sender_id", msg.SenderID),
			zap.Int64("chat_id", msg.ChatID))
		return
	}

	cmd, ok := ParseCommand(msg.Content)
	if !ok {
		return
	}
	if bareCommands[cmd.Name] && len(cmd.Args) > 0 {
		d.log.Debug("ignoring command with unexpected arguments",
			zap.String("command", cmd.Name),
			zap.Int64("chat_id", msg.ChatID))
		return
	}
	d.log.Info("command",
		zap.String("command", cmd.Name),
		zap.Int64("chat_id", msg.ChatID))

	switch cmd.Name {
	case "spam":
		d.handleSpam(ctx, msg, cmd)
	case "stop_spam":
		d.handleStop(ctx, msg)
	case "stop_all_spam":
		n := d.deps.Tasks.StopAll()
		d.reply(ctx, msg, fmt.Sprintf("✅ Stopped %d spam tasks", n))
	case "spam_list":
		d.reply(ctx, msg, d.formatTaskList())
	case "status":
		d.reply(ctx, msg, d.formatStatus(msg.ChatID))
	case "help":
		d.replyStyled(ctx, msg, helpText)
	case "add_db":
		d.handleAddLabel(ctx, msg, cmd)
	case "autoprocess_on":
		d.deps.AutoProcess.SetChat(msg.ChatID, true)
		d.reply(ctx, msg, "✅ Auto-processing enabled in this chat")
	case "autoprocess_off":
		d.deps.AutoProcess.SetChat(msg.ChatID, false)
		d.reply(ctx, msg, "✅ Auto-processing disabled in this chat")
	case "autoprocess_on_all":
		d.deps.AutoProcess.SetGlobal(true)
		d.reply(ctx, msg, "✅ Auto-processing enabled in all chats")
	case "autoprocess_off_all":
		d.deps.AutoProcess.SetGlobal(false)
		d.reply(ctx, msg, "✅ Auto-processing disabled in all chats")
	}
}

func (d *Dispatcher) handleSpam(ctx context.Context, msg bus.InboundMessage, cmd Command) {
	payload, interval, err := ParseSpam(cmd)
	if err != nil {
		d.reply(ctx, msg, usageReply(err))
		return
	}
	err = d.deps.Tasks.Start(msg.ChatID, payload, interval)
	switch {
	case err == nil:
		d.reply(ctx, msg, fmt.Sprintf("%s\n✅ Started spam in this chat every %ds", payload, int(interval/time.Second)))
	case errors.Is(err, supervisor.ErrAlreadyRunning):
		d.reply(ctx, msg, "⚠️ Spam already running in this chat. Use /stop_spam first.")
	default:
		d.log.Warn("start spam failed", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
		d.reply(ctx, msg, fmt.Sprintf("❌ Failed to start spam: %v", err))
	}
}

func (d *Dispatcher) handleStop(ctx context.Context, msg bus.InboundMessage) {
	if err := d.deps.Tasks.Stop(msg.ChatID); err != nil {
		d.reply(ctx, msg, "❌ No spam running in this chat")
		return
	}
	d.reply(ctx, msg, "✅ Stopped spam in this chat")
}

func (d *Dispatcher) handleAddLabel(ctx context.Context, msg bus.InboundMessage, cmd Command) {
	if d.deps.Labels == nil {
		d.reply(ctx, msg, "❌ Label store is not configured")
		return
	}
	isReply := msg.ReplyToID != 0 && d.deps.Photos != nil
	imageID, label, err := ParseAddLabel(cmd, isReply)
	if err != nil {
		d.reply(ctx, msg, usageReply(err))
		return
	}
	if isReply {
		photo, ferr := d.deps.Photos.FetchPhoto(ctx, msg.ChatID, msg.ReplyToID)
		if ferr != nil {
			d.log.Warn("fetch replied photo failed", zap.Int64("chat_id", msg.ChatID), zap.Error(ferr))
			d.reply(ctx, msg, fmt.Sprintf("❌ Could not load the replied message: %v", ferr))
			return
		}
		if photo == nil {
			d.reply(ctx, msg, "❌ The replied message has no photo")
			return
		}
		imageID = labels.ImageID(photo.ID, photo.AccessHash)
	}
	if err := d.deps.Labels.Add(ctx, imageID, label); err != nil {
		d.log.Error("save label failed", zap.String("image_id", imageID), zap.Error(err))
		d.reply(ctx, msg, fmt.Sprintf("❌ Failed to save label: %v", err))
		return
	}
	d.reply(ctx, msg, fmt.Sprintf("✅ Saved %s → %s", imageID, label))
}

// shouldMatch applies the photo gates in order: auto-processing, trigger
// sender, photo presence, keyword. An empty keyword never matches.
func (d *Dispatcher) shouldMatch(msg bus.InboundMessage) bool {
	if d.deps.Matcher == nil {
		return false
	}
	if !d.deps.AutoProcess.Enabled(msg.ChatID) {
		return false
	}
	if d.cfg.TriggerBotID == 0 || msg.SenderID != d.cfg.TriggerBotID {
		return false
	}
	if !msg.HasPhoto() {
		return false
	}
	return d.cfg.TriggerKeyword != "" && strings.Contains(msg.Content, d.cfg.TriggerKeyword)
}

func (d *Dispatcher) matchPhoto(ctx context.Context, msg bus.InboundMessage) {
	imageID := labels.ImageID(msg.Photo.ID, msg.Photo.AccessHash)
	label, ok := d.deps.Matcher.Resolve(imageID)
	if !ok {
		d.log.Info("photo not recognised", zap.String("image_id", imageID), zap.Int64("chat_id", msg.ChatID))
		d.reply(ctx, msg, d.cfg.UnrecognizedReply)
		return
	}
	d.log.Info("photo matched", zap.String("image_id", imageID), zap.String("label", label))
	d.reply(ctx, msg, strings.Replace(d.cfg.MatchTemplate, "%s", label, 1))
}

func (d *Dispatcher) reply(ctx context.Context, msg bus.InboundMessage, text string) {
	d.send(ctx, msg, text, false)
}

func (d *Dispatcher) replyStyled(ctx context.Context, msg bus.InboundMessage, text string) {
	d.send(ctx, msg, text, true)
}

func (d *Dispatcher) send(ctx context.Context, msg bus.InboundMessage, text string, styled bool) {
	if d.deps.Replier == nil {
		return
	}
	out := bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: text,
		ReplyTo: msg.MessageID,
		Styled:  styled,
	}
	if err := d.deps.Replier.Send(ctx, out); err != nil {
		d.log.Warn("reply failed", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}

func usageReply(err error) string {
	var ue *UsageError
	if errors.As(err, &ue) {
		return fmt.Sprintf("❌ Invalid parameters: %s\nUsage: %s", ue.Reason, ue.Usage)
	}
	return "❌ Invalid parameters"
}
