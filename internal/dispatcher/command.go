package dispatcher

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed is the root of every grammar violation.
var ErrMalformed = errors.New("malformed command")

// UsageError describes a malformed command and how to use it correctly.
type UsageError struct {
	Command string
	Usage   string
	Reason  string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("/%s: %s (usage: %s)", e.Command, e.Reason, e.Usage)
}

// Unwrap lets errors.Is(err, ErrMalformed) match.
func (e *UsageError) Unwrap() error { return ErrMalformed }

// Command is a parsed slash-command.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits text into a command name and whitespace-separated
// arguments. A "@botname" suffix on the command token is dropped.
// ok is false when text is not a slash-command.
func ParseCommand(text string) (Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Command{}, false
	}
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return Command{}, false
	}
	return Command{Name: name, Args: fields[1:]}, true
}

const spamUsage = "/spam <message> <delay>"

// MaxSpamDelay is the longest delay, in seconds, that still fits a
// time.Duration.
const MaxSpamDelay = math.MaxInt64 / int64(time.Second)

// ParseSpam validates "/spam <message> <intervalSeconds>". The message is a
// single token: "/spam hello world 5" is malformed, not a two-word message.
func ParseSpam(cmd Command) (payload string, interval time.Duration, err error) {
	if len(cmd.Args) != 2 {
		return "", 0, &UsageError{Command: "spam", Usage: spamUsage, Reason: "expected a message and a delay"}
	}
	secs, convErr := strconv.ParseInt(cmd.Args[1], 10, 64)
	switch {
	case errors.Is(convErr, strconv.ErrRange):
		return "", 0, tooLong()
	case convErr != nil:
		return "", 0, &UsageError{Command: "spam", Usage: spamUsage, Reason: "delay must be a whole number of seconds"}
	case secs <= 0:
		return "", 0, &UsageError{Command: "spam", Usage: spamUsage, Reason: "delay must be positive"}
	case secs > MaxSpamDelay:
		return "", 0, tooLong()
	}
	return cmd.Args[0], time.Duration(secs) * time.Second, nil
}

func tooLong() error {
	return &UsageError{Command: "spam", Usage: spamUsage, Reason: fmt.Sprintf("delay must be at most %d seconds", MaxSpamDelay)}
}

const addLabelUsage = "/add_db <label> (as a reply to a photo) or /add_db <image_id> <label>"

// ParseAddLabel validates /add_db. When replying to a photo every argument
// belongs to the label; otherwise the first argument is the image id.
func ParseAddLabel(cmd Command, isReply bool) (imageID, label string, err error) {
	if isReply {
		if len(cmd.Args) == 0 {
			return "", "", &UsageError{Command: "add_db", Usage: addLabelUsage, Reason: "missing label"}
		}
		return "", strings.Join(cmd.Args, " "), nil
	}
	if len(cmd.Args) < 2 {
		return "", "", &UsageError{Command: "add_db", Usage: addLabelUsage, Reason: "expected an image id and a label"}
	}
	return cmd.Args[0], strings.Join(cmd.Args[1:], " "), nil
}
