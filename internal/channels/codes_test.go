package channels

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeRelay_Delivers(t *testing.T) {
	r := NewCodeRelay()
	got := make(chan string, 1)
	go func() {
		code, err := r.Prompt(context.Background())
		if err == nil {
			got <- code
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Submit(ctx, " 24680 "))
	assert.Equal(t, "24680", <-got)
}

func TestCodeRelay_NobodyWaiting(t *testing.T) {
	r := NewCodeRelay()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Submit(ctx, "1"), ErrNoLoginPending)
	assert.Error(t, r.Submit(context.Background(), "  "))
}

func TestCodeRelay_PromptCancelled(t *testing.T) {
	r := NewCodeRelay()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Prompt(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
