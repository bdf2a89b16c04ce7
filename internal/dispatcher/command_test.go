package dispatcher

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Command
		ok   bool
	}{
		{"plain", "/status", Command{Name: "status", Args: []string{}}, true},
		{"args", "/spam hi 5", Command{Name: "spam", Args: []string{"hi", "5"}}, true},
		{"bot suffix", "/help@my_bot", Command{Name: "help", Args: []string{}}, true},
		{"extra whitespace", "  /stop_spam   ", Command{Name: "stop_spam", Args: []string{}}, true},
		{"not a command", "hello /spam", Command{}, false},
		{"empty", "", Command{}, false},
		{"bare slash", "/", Command{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCommand(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSpam(t *testing.T) {
	cmd, _ := ParseCommand("/spam hello 30")
	payload, interval, err := ParseSpam(cmd)
	require.NoError(t, err)
	assert.Equal(t, "hello", payload)
	assert.Equal(t, 30*time.Second, interval)
}

func TestParseSpam_Malformed(t *testing.T) {
	for _, text := range []string{
		"/spam",
		"/spam hello",
		"/spam hello world 5",
		"/spam hello abc",
		"/spam hello 0",
		"/spam hello -5",
		"/spam hello 1.5",
		"/spam hello 10000000000",
		"/spam hi 18446744075",
		"/spam hi 99999999999999999999999",
	} {
		t.Run(text, func(t *testing.T) {
			cmd, ok := ParseCommand(text)
			require.True(t, ok)
			_, _, err := ParseSpam(cmd)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))

			var ue *UsageError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, "spam", ue.Command)
			assert.NotEmpty(t, ue.Reason)
		})
	}
}

func TestParseSpam_MaxDelay(t *testing.T) {
	cmd, _ := ParseCommand(fmt.Sprintf("/spam hi %d", MaxSpamDelay))
	_, interval, err := ParseSpam(cmd)
	require.NoError(t, err)
	assert.Positive(t, interval)
	assert.Equal(t, MaxSpamDelay, int64(interval/time.Second))
}

func TestParseAddLabel(t *testing.T) {
	cmd, _ := ParseCommand("/add_db 123_456 red apple")
	id, label, err := ParseAddLabel(cmd, false)
	require.NoError(t, err)
	assert.Equal(t, "123_456", id)
	assert.Equal(t, "red apple", label)

	id, label, err = ParseAddLabel(cmd, true)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, "123_456 red apple", label)

	short, _ := ParseCommand("/add_db onlyid")
	_, _, err = ParseAddLabel(short, false)
	assert.ErrorIs(t, err, ErrMalformed)

	bare, _ := ParseCommand("/add_db")
	_, _, err = ParseAddLabel(bare, true)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestAutoProcess(t *testing.T) {
	ap := NewAutoProcess(false, 7)
	assert.True(t, ap.Enabled(7))
	assert.False(t, ap.Enabled(8))

	ap.SetGlobal(true)
	assert.True(t, ap.Enabled(8))
	assert.False(t, ap.ChatEnabled(8))

	ap.SetGlobal(false)
	ap.SetChat(7, false)
	ap.SetChat(9, true)
	ap.SetChat(3, true)
	assert.False(t, ap.Enabled(7))
	assert.Equal(t, []int64{3, 9}, ap.Chats())
}
