package dispatcher

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dayuer/tgpilot/internal/clock"
	"github.com/dayuer/tgpilot/internal/utils"
)

const helpText = `🤖 **Bot Commands (Owner Only)**

**Spam**
• /spam <msg> <delay> - spam in the current chat every <delay> seconds
• /stop_spam - stop spam in the current chat
• /stop_all_spam - stop all spam tasks
• /spam_list - list running spam tasks

**Images**
• /add_db <label> - reply to a photo to save its label
• /add_db <image_id> <label> - save a label by image id
• /autoprocess_on, /autoprocess_off - auto-match photos in this chat
• /autoprocess_on_all, /autoprocess_off_all - auto-match photos everywhere

**Info**
• /status - show bot status
• /help - show this help`

const previewLen = 40

func (d *Dispatcher) formatStatus(chatID int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "⏱ Uptime: %s\n", clock.FormatUptime(d.deps.Uptime.Uptime()))
	fmt.Fprintf(&sb, "🚀 Spam Tasks: %d", d.deps.Tasks.ActiveCount())
	if d.deps.Labels != nil {
		fmt.Fprintf(&sb, "\n🖼 Labels: %d", d.deps.Labels.Len())
	}
	fmt.Fprintf(&sb, "\n🤖 Auto-process: %s", d.autoProcessState(chatID))
	if chats := d.deps.AutoProcess.Chats(); len(chats) > 0 && !d.deps.AutoProcess.Global() {
		ids := make([]string, len(chats))
		for i, id := range chats {
			ids[i] = strconv.FormatInt(id, 10)
		}
		fmt.Fprintf(&sb, "\n🗂 Auto-process chats: %s", strings.Join(ids, ", "))
	}
	fmt.Fprintf(&sb, "\n🚦 Start policy: %s", d.deps.Tasks.Policy())
	if ch := d.deps.Channels; ch != nil {
		status := ch.GetStatus()
		parts := make([]string, 0, len(status))
		for _, name := range ch.EnabledChannels() {
			state := "down"
			if status[name] {
				state = "up"
			}
			parts = append(parts, name+" "+state)
		}
		fmt.Fprintf(&sb, "\n🔌 Channels: %s", strings.Join(parts, ", "))
	}
	if q := d.deps.Queue; q != nil {
		published, handled := q.Stats()
		fmt.Fprintf(&sb, "\n📨 Messages: %d received, %d handled, %d queued", published, handled, q.InboundSize())
	}
	return sb.String()
}

func (d *Dispatcher) autoProcessState(chatID int64) string {
	ap := d.deps.AutoProcess
	switch {
	case ap.Global():
		return "on (all chats)"
	case ap.ChatEnabled(chatID):
		return "on (this chat)"
	default:
		return "off"
	}
}

func (d *Dispatcher) formatTaskList() string {
	tasks := d.deps.Tasks.List()
	if len(tasks) == 0 {
		return "📭 No spam tasks running"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🚀 %d spam tasks:", len(tasks))
	for _, t := range tasks {
		fmt.Fprintf(&sb, "\n• %d every %s, sent %d: %s",
			t.Key, t.Interval, t.Sent, utils.TruncateString(t.Payload, previewLen, "..."))
	}
	return sb.String()
}
