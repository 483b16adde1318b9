package hub

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is one websocket session. All frames for a session pass through
// frameCh and are written by a single goroutine, so delivery within any
// subscribed key is monotonic.
type Client struct {
	UserID    int64
	SessionID int64
	Conn      *websocket.Conn
	PubSub    *redis.PubSub
	frameCh   chan string
	Ctx       context.Context
	mutex     sync.Mutex
}

// Hub tracks connected clients and routes ledger change events to their
// subscribers, over redis pub/sub or an in-process registry when running
// self-contained.
type Hub struct {
	sugar         *zap.SugaredLogger
	redisClient   *redis.Client
	selfContained bool

	clients      map[int64]*Client
	clientsMutex sync.Mutex

	localPubSubMutex sync.RWMutex
	localPubSub      map[string][]int64

	redisCtx context.Context
}

func New(sugar *zap.SugaredLogger, redisClient *redis.Client, selfContained bool) *Hub {
	return &Hub{
		sugar:         sugar,
		redisClient:   redisClient,
		selfContained: selfContained,
		clients:       make(map[int64]*Client),
		localPubSub:   make(map[string][]int64),
		redisCtx:      context.Background(),
	}
}

func (h *Hub) HandleClient(w http.ResponseWriter, r *http.Request, userID int64, sessionID int64) {
	h.sugar.Debugf("Connecting user ID [%d] to WebSocket as session ID [%d]", userID, sessionID)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.sugar.Error(err)
		return
	}
	defer conn.Close()

	clientCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &Client{
		UserID:    userID,
		SessionID: sessionID,
		Conn:      conn,
		frameCh:   make(chan string, 64),
		Ctx:       clientCtx,
	}

	var msgCh <-chan *redis.Message
	if !h.selfContained {
		pubsub := h.redisClient.Subscribe(clientCtx)
		defer pubsub.Unsubscribe(clientCtx)
		defer pubsub.Close()

		client.PubSub = pubsub
		msgCh = pubsub.Channel()
	}

	h.setClient(sessionID, client)

	// single writer per connection
	go func() {
		for {
			select {
			case <-client.Ctx.Done():
				return
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				if err := client.Conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
					h.sugar.Error(err)
					return
				}
			case frame, ok := <-client.frameCh:
				if !ok {
					return
				}
				if err := client.Conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
					h.sugar.Error(err)
					return
				}
			}
		}
	}()

	// the client never speaks, reading only detects disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.sugar.Debug(err)
			break
		}
	}

	h.deleteClient(sessionID)
}

func (h *Hub) setClient(sessionID int64, client *Client) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	h.clients[sessionID] = client
}

func (h *Hub) deleteClient(sessionID int64) {
	h.sugar.Debugf("Removing session ID [%d] from clients", sessionID)

	if h.selfContained {
		h.unsubscribeFromAllLocal(sessionID)
	}

	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	delete(h.clients, sessionID)
}

func (h *Hub) GetClient(sessionID int64) (*Client, bool) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	client, exists := h.clients[sessionID]
	return client, exists
}
