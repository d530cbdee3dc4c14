package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// AudienceChangeHandler is called when the audience count changes for an
// event (e.g. for peak tracking).
type AudienceChangeHandler func(eventID string, count int)

// PresenceHandler is called when an event room gains its first client or
// loses its last one. Used to start and stop per-event background work such
// as the moderation refresh loop.
type PresenceHandler func(eventID string)

// Hub maintains event_id -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish to Redis.
type Hub struct {
	// eventID -> map[clientID]*Client
	rooms      map[string]map[string]*Client
	subs       map[string]func() // cancel Redis subscription per event
	mu         sync.RWMutex
	logger     *zap.Logger
	redis      RedisPublisher
	redisSub   RedisSubscriber
	onAudience AudienceChangeHandler
	onFirst    PresenceHandler
	onLast     PresenceHandler
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishEventMessage(eventID string, event string, payload []byte) error
}

// RedisSubscriber subscribes to event channels and invokes handler for incoming messages.
type RedisSubscriber interface {
	SubscribeEvent(eventID string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		rooms:    make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// SetAudienceChangeHandler sets the callback for audience count changes (e.g. peak audience).
func (h *Hub) SetAudienceChangeHandler(fn AudienceChangeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAudience = fn
}

// SetPresenceHandlers sets the callbacks for room open/close transitions.
func (h *Hub) SetPresenceHandlers(onFirst, onLast PresenceHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFirst = onFirst
	h.onLast = onLast
}

// Register adds a client to an event room. Starts the Redis subscription for
// this event if it is the first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	first := h.rooms[c.EventID] == nil
	if first {
		h.rooms[c.EventID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeEvent(c.EventID, func(event string, payload []byte) {
				h.BroadcastToEvent(c.EventID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.EventID] = cancel
			}
		}
	}
	h.rooms[c.EventID][c.ID] = c
	count := len(h.rooms[c.EventID])
	onAudience := h.onAudience
	onFirst := h.onFirst
	h.mu.Unlock()
	if first && onFirst != nil {
		onFirst(c.EventID)
	}
	if onAudience != nil {
		onAudience(c.EventID, count)
	}
	h.logger.Debug("client joined event", zap.String("client_id", c.ID), zap.String("event_id", c.EventID))
}

// Unregister removes a client from an event room. Cancels the Redis
// subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var count int
	var last bool
	if m, ok := h.rooms[c.EventID]; ok {
		delete(m, c.ID)
		count = len(m)
		if count == 0 {
			last = true
			delete(h.rooms, c.EventID)
			if cancel, ok := h.subs[c.EventID]; ok {
				cancel()
				delete(h.subs, c.EventID)
			}
		}
	}
	onAudience := h.onAudience
	onLast := h.onLast
	h.mu.Unlock()
	if onAudience != nil && count > 0 {
		onAudience(c.EventID, count)
	}
	if last && onLast != nil {
		onLast(c.EventID)
	}
	h.logger.Debug("client left event", zap.String("client_id", c.ID), zap.String("event_id", c.EventID))
}

// BroadcastToEvent sends a message to all clients in an event room (local only).
func (h *Hub) BroadcastToEvent(eventID string, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	// Snapshot the room under the lock; Register may mutate the map while
	// messages are being queued.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[eventID]))
	for _, c := range h.rooms[eventID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastToEventAndPublish sends to local clients and publishes to Redis for other instances.
func (h *Hub) BroadcastToEventAndPublish(eventID string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.BroadcastToEvent(eventID, event, payload)
	if h.redis != nil {
		_ = h.redis.PublishEventMessage(eventID, event, data)
	}
}

// PublishToEventOnly publishes to Redis only (no local broadcast). The Redis
// subscriber callback performs the broadcast once for all instances
// (including this one), avoiding duplicate delivery to local clients.
func (h *Hub) PublishToEventOnly(eventID string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		_ = h.redis.PublishEventMessage(eventID, event, data)
		return
	}
	h.BroadcastToEvent(eventID, event, payload)
}

// AudienceCount returns the number of connected clients in an event room.
func (h *Hub) AudienceCount(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}

// SendToClient sends a message to a single client in an event room.
func (h *Hub) SendToClient(eventID string, clientID string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	clients := h.rooms[eventID]
	c, ok := clients[clientID]
	h.mu.RUnlock()
	if !ok || c == nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
