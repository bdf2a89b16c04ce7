package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageBus(t *testing.T) {
	bus := NewMessageBus()
	assert.NotNil(t, bus)
	assert.Equal(t, 0, bus.InboundSize())
	assert.Equal(t, DefaultBufferSize, cap(bus.Inbound))
	assert.Equal(t, DefaultBufferSize, cap(NewMessageBusSize(0).Inbound))
}

func TestMessageBus_PublishConsumeInbound(t *testing.T) {
	bus := NewMessageBus()
	msg := InboundMessage{Channel: "telegram", Content: "hello", ChatID: 42}

	require.NoError(t, bus.PublishInbound(context.Background(), msg))
	assert.Equal(t, 1, bus.InboundSize())

	received := <-bus.Inbound
	assert.Equal(t, "hello", received.Content)
	assert.Equal(t, int64(42), received.ChatID)
}

func TestMessageBus_PublishFullQueueHonoursContext(t *testing.T) {
	bus := NewMessageBusSize(1)
	require.NoError(t, bus.PublishInbound(context.Background(), InboundMessage{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := bus.PublishInbound(ctx, InboundMessage{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMessageBus_ConsumeSequentialInOrder(t *testing.T) {
	bus := NewMessageBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		order   []int
		running int
		overlap bool
	)
	done := make(chan struct{})
	go func() {
		bus.Consume(ctx, func(_ context.Context, msg InboundMessage) {
			mu.Lock()
			running++
			if running > 1 {
				overlap = true
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			order = append(order, msg.MessageID)
			running--
			mu.Unlock()
		})
		close(done)
	}()

	for i := 1; i <= 10; i++ {
		require.NoError(t, bus.PublishInbound(ctx, InboundMessage{MessageID: i}))
	}
	assert.Eventually(t, func() bool {
		_, handled := bus.Stats()
		return handled == 10
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, overlap, "handler invocations must not overlap")
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, order)
}

func TestMessageBus_ConcurrentPublish(t *testing.T) {
	bus := NewMessageBus()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.PublishInbound(context.Background(), InboundMessage{Channel: "test", Content: "msg"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, bus.InboundSize())
	published, _ := bus.Stats()
	assert.Equal(t, int64(100), published)
}
