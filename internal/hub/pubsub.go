package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Subscribe attaches a connected session to a key's change stream.
func (h *Hub) Subscribe(key string, sessionID int64) error {
	client, exists := h.GetClient(sessionID)
	if !exists {
		return fmt.Errorf("session ID [%d] tried to subscribe to key [%s] but the session isn't connected to hub", sessionID, key)
	}

	if h.selfContained {
		h.localPubSubMutex.Lock()
		defer h.localPubSubMutex.Unlock()

		for _, id := range h.localPubSub[key] {
			if id == sessionID {
				return nil // already subscribed
			}
		}
		h.localPubSub[key] = append(h.localPubSub[key], sessionID)
	} else {
		client.mutex.Lock()
		defer client.mutex.Unlock()

		if err := client.PubSub.Subscribe(client.Ctx, key); err != nil {
			return err
		}
	}

	h.sugar.Debugf("Session ID %d subscribed to key %s", sessionID, key)

	return nil
}

// Unsubscribe detaches a session from a key's change stream.
func (h *Hub) Unsubscribe(key string, sessionID int64) error {
	client, exists := h.GetClient(sessionID)
	if !exists {
		return nil
	}

	if h.selfContained {
		h.localPubSubMutex.Lock()
		defer h.localPubSubMutex.Unlock()

		h.unsubscribeLocal(key, sessionID)
		return nil
	}

	client.mutex.Lock()
	defer client.mutex.Unlock()

	return client.PubSub.Unsubscribe(client.Ctx, key)
}

// caller must hold localPubSubMutex
func (h *Hub) unsubscribeLocal(key string, sessionID int64) {
	sessionIDs := h.localPubSub[key]

	for i := range sessionIDs {
		if sessionIDs[i] == sessionID {
			sessionIDs[i] = sessionIDs[len(sessionIDs)-1]
			h.localPubSub[key] = sessionIDs[:len(sessionIDs)-1]
			break
		}
	}

	if len(h.localPubSub[key]) == 0 {
		delete(h.localPubSub, key)
	}
}

func (h *Hub) unsubscribeFromAllLocal(sessionID int64) {
	h.localPubSubMutex.Lock()
	defer h.localPubSubMutex.Unlock()

	for key := range h.localPubSub {
		h.unsubscribeLocal(key, sessionID)
	}
}

// Emit pushes one change event to every subscriber of key. Delivery is
// best-effort: a subscriber that went away between the mutation and the
// push simply misses the event.
func (h *Hub) Emit(event string, key string, payload any) error {
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.Grow(len(event) + 1 + len(jsonBytes))
	buf.WriteString(event)
	buf.WriteByte('\n')
	buf.Write(jsonBytes)

	h.sugar.Debugf("Emitting %s to subscribers of key %s", event, key)

	if h.selfContained {
		h.localPubSubMutex.RLock()
		defer h.localPubSubMutex.RUnlock()

		for _, sessionID := range h.localPubSub[key] {
			client, exists := h.GetClient(sessionID)
			if !exists {
				h.sugar.Warnf("Session ID %d is supposed to be available", sessionID)
				continue
			}

			select {
			case client.frameCh <- buf.String():
			default:
				h.sugar.Warnf("Dropping frame for slow session ID %d", sessionID)
			}
		}

		return nil
	}

	return h.redisClient.Publish(h.redisCtx, key, buf.String()).Err()
}

// SubscriberCount reports how many sessions are attached to a key in
// self-contained mode.
func (h *Hub) SubscriberCount(key string) int {
	h.localPubSubMutex.RLock()
	defer h.localPubSubMutex.RUnlock()

	return len(h.localPubSub[key])
}
