package realtime

import (
	"context"
	"sync"

	"github.com/cinematch/cinematch/pkg/logger"
)

const (
	MessageTypeFeedUpdate      = "activity_feed_update"
	MessageTypeNotification    = "notification"
	MessageTypeActivityDeleted = "activity_deleted"
)

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type envelope struct {
	message Message
	userID  int64 // zero means every client
}

// Hub tracks connected clients, indexed by user so notifications reach only
// their target.
type Hub struct {
	clients    map[*Client]bool
	byUser     map[int64]map[*Client]bool
	outbound   chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	logger     *logger.Logger
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byUser:     make(map[int64]map[*Client]bool),
		outbound:   make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns client registration and delivery until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			h.logger.Info("Websocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.byUser[client.userID] == nil {
				h.byUser[client.userID] = make(map[*Client]bool)
			}
			h.byUser[client.userID][client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.WithFields(map[string]interface{}{
				"user_id":       client.userID,
				"total_clients": total,
			}).Debug("Websocket client connected")

		case client := <-h.unregister:
			h.remove(client)

		case env := <-h.outbound:
			h.deliver(env)
		}
	}
}

func (h *Hub) Broadcast(message Message) {
	h.enqueue(envelope{message: message})
}

func (h *Hub) SendToUser(userID int64, message Message) {
	if userID == 0 {
		return
	}
	h.enqueue(envelope{message: message, userID: userID})
}

func (h *Hub) enqueue(env envelope) {
	select {
	case h.outbound <- env:
	default:
		h.logger.WithField("type", env.message.Type).Warn("Websocket hub queue full, dropping message")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) deliver(env envelope) {
	h.mu.RLock()
	targets := h.clients
	if env.userID != 0 {
		targets = h.byUser[env.userID]
	}
	var slow []*Client
	for client := range targets {
		select {
		case client.send <- env.message:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if set := h.byUser[client.userID]; set != nil {
		delete(set, client)
		if len(set) == 0 {
			delete(h.byUser, client.userID)
		}
	}
	close(client.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
	h.byUser = make(map[int64]map[*Client]bool)
}
