package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/tgpilot/internal/labels"
)

var _ labels.Mirror = (*LabelMirror)(nil)

func TestConnect_Disabled(t *testing.T) {
	m, err := Connect(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), Config{URL: "http://not-redis"}, nil)
	assert.Error(t, err)
}

func TestNilMirror(t *testing.T) {
	var m *LabelMirror
	ctx := context.Background()

	assert.ErrorIs(t, m.Put(ctx, "1_2", "cat"), ErrUnavailable)
	_, err := m.All(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, m.Close())
	assert.Empty(t, m.Key())
}

// TestLabelMirror_Live runs against a real server when TGPILOT_TEST_REDIS_URL is set.
func TestLabelMirror_Live(t *testing.T) {
	url := os.Getenv("TGPILOT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("TGPILOT_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	key := "tgpilot-test:" + uuid.NewString()

	m, err := Connect(ctx, Config{URL: url, Key: key}, nil)
	require.NoError(t, err)
	require.NotNil(t, m)
	t.Cleanup(func() {
		_ = m.client.Del(ctx, key).Err()
		_ = m.Close()
	})

	require.NoError(t, m.Put(ctx, "1_2", "cat"))
	require.NoError(t, m.Put(ctx, "3_4", "dog"))

	all, err := m.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1_2": "cat", "3_4": "dog"}, all)

	store, err := labels.Open(ctx, t.TempDir()+"/labels.json", labels.WithMirror(m))
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
}
