package hub

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLocalHub() *Hub {
	return New(zap.NewNop().Sugar(), nil, true)
}

func connect(h *Hub, userID int64, sessionID int64) *Client {
	client := &Client{
		UserID:    userID,
		SessionID: sessionID,
		frameCh:   make(chan string, 64),
		Ctx:       context.Background(),
	}
	h.setClient(sessionID, client)
	return client
}

func TestSubscribeRequiresConnectedSession(t *testing.T) {
	h := newLocalHub()

	err := h.Subscribe("relationships:1", 42)
	assert.Error(t, err)

	connect(h, 1, 42)
	require.NoError(t, h.Subscribe("relationships:1", 42))

	// subscribing twice doesn't double-deliver
	require.NoError(t, h.Subscribe("relationships:1", 42))
	assert.Equal(t, 1, h.SubscriberCount("relationships:1"))
}

func TestEmitDeliversFramesInOrder(t *testing.T) {
	h := newLocalHub()
	client := connect(h, 1, 42)

	require.NoError(t, h.Subscribe("channel:7", 42))

	require.NoError(t, h.Emit("MessageCreated", "channel:7", map[string]string{"message": "first"}))
	require.NoError(t, h.Emit("MessageDeleted", "channel:7", 123))

	frame := <-client.frameCh
	assert.Equal(t, "MessageCreated\n{\"message\":\"first\"}", frame)

	frame = <-client.frameCh
	assert.Equal(t, "MessageDeleted\n123", frame)
}

func TestEmitSkipsOtherKeys(t *testing.T) {
	h := newLocalHub()
	client := connect(h, 1, 42)

	require.NoError(t, h.Subscribe("channel:7", 42))
	require.NoError(t, h.Emit("MessageCreated", "channel:8", "elsewhere"))

	assert.Empty(t, client.frameCh)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := newLocalHub()
	client := connect(h, 1, 42)

	require.NoError(t, h.Subscribe("thread:3", 42))
	require.NoError(t, h.Unsubscribe("thread:3", 42))

	require.NoError(t, h.Emit("MessageCreated", "thread:3", "gone"))
	assert.Empty(t, client.frameCh)
	assert.Equal(t, 0, h.SubscriberCount("thread:3"))
}

func TestDisconnectClearsAllSubscriptions(t *testing.T) {
	h := newLocalHub()
	connect(h, 1, 42)

	require.NoError(t, h.Subscribe("channel:1", 42))
	require.NoError(t, h.Subscribe("notifications:1", 42))

	h.deleteClient(42)

	assert.Equal(t, 0, h.SubscriberCount("channel:1"))
	assert.Equal(t, 0, h.SubscriberCount("notifications:1"))

	_, exists := h.GetClient(42)
	assert.False(t, exists)
}

func TestSlowSubscriberDropsFramesInsteadOfBlocking(t *testing.T) {
	h := newLocalHub()
	client := connect(h, 1, 42)

	require.NoError(t, h.Subscribe("channel:9", 42))

	// overflow the buffer, Emit must not block
	for i := 0; i < cap(client.frameCh)+10; i++ {
		require.NoError(t, h.Emit("MessageCreated", "channel:9", fmt.Sprintf("frame %d", i)))
	}

	assert.Len(t, client.frameCh, cap(client.frameCh))
}
