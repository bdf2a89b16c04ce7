package channels

import (
	"context"
	"errors"
	"strings"
)

// ErrNoLoginPending is returned by Submit when nobody is waiting for a code.
var ErrNoLoginPending = errors.New("telegram client is not waiting for a login code")

// CodeRelay hands a login code from an outside source (such as an HTTP
// endpoint) to a waiting login flow.
type CodeRelay struct {
	codes chan string
}

// NewCodeRelay creates a relay.
func NewCodeRelay() *CodeRelay {
	return &CodeRelay{codes: make(chan string)}
}

// Prompt blocks until a code is submitted. It satisfies CodePrompt.
func (r *CodeRelay) Prompt(ctx context.Context) (string, error) {
	select {
	case code := <-r.codes:
		return code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Submit delivers code to a waiting Prompt, giving up when ctx is done.
func (r *CodeRelay) Submit(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("empty login code")
	}
	select {
	case r.codes <- code:
		return nil
	case <-ctx.Done():
		return ErrNoLoginPending
	}
}
