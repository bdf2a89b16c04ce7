package bus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundMessage_HasPhoto(t *testing.T) {
	msg := InboundMessage{Content: "no photo"}
	assert.False(t, msg.HasPhoto())

	msg.Photo = &Photo{ID: 1, AccessHash: 2}
	assert.True(t, msg.HasPhoto())
}

func TestInboundMessage_JSONOmitsEmptyOptionalFields(t *testing.T) {
	data, err := json.Marshal(InboundMessage{Channel: "telegram", ChatID: -1001, SenderID: 7})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, float64(-1001), fields["chat_id"])
	assert.NotContains(t, fields, "photo")
	assert.NotContains(t, fields, "reply_to_id")
	assert.NotContains(t, fields, "outgoing")
}
