package ws

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Movelgroup/movel-RestAPI/internal/state"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Default buffer sizes
const (
	DefaultSendBuffer    = 256
	DefaultPublishBuffer = 1024
)

// Message frame sent to subscribers
type Message struct {
	Type      string      `json:"type"`
	Topic     string      `json:"topic"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type envelope struct {
	topic string
	data  []byte
}

// Options hub tuning
type Options struct {
	SendBuffer    int
	PublishBuffer int
}

// Client one hub connection
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	id      string
	subject string
	topics  []string
	machine *state.Machine
}

// Hub topic groups of live connections. Membership is fixed at connect time.
type Hub struct {
	logger     *zap.Logger
	states     *state.Manager
	sendBuffer int

	mu      sync.RWMutex
	clients map[*Client]struct{}
	groups  map[string]map[*Client]struct{}

	publish    chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub creates a hub
func NewHub(logger *zap.Logger, states *state.Manager, opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	if opts.PublishBuffer <= 0 {
		opts.PublishBuffer = DefaultPublishBuffer
	}
	return &Hub{
		logger:     logger,
		states:     states,
		sendBuffer: opts.SendBuffer,
		clients:    make(map[*Client]struct{}),
		groups:     make(map[string]map[*Client]struct{}),
		publish:    make(chan envelope, opts.PublishBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// States connection lifecycle tracker
func (h *Hub) States() *state.Manager {
	return h.states
}

// Run processes registrations and publications until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.removeLocked(client, "hub stopped")
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			for _, topic := range client.topics {
				group, ok := h.groups[topic]
				if !ok {
					group = make(map[*Client]struct{})
					h.groups[topic] = group
				}
				group[client] = struct{}{}
			}
			total := len(h.clients)
			h.mu.Unlock()

			if err := client.machine.Trigger(state.EventJoin); err != nil {
				h.logger.Warn("Unexpected connection state", zap.String("conn_id", client.id), zap.Error(err))
			}
			h.logger.Info("Hub client subscribed",
				zap.String("conn_id", client.id),
				zap.String("subject", client.subject),
				zap.Strings("topics", client.topics),
				zap.Int("total_clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client, "connection closed")
			h.mu.Unlock()

		case msg := <-h.publish:
			h.mu.Lock()
			for client := range h.groups[msg.topic] {
				select {
				case client.send <- msg.data:
				default:
					h.removeLocked(client, "slow consumer")
				}
			}
			h.mu.Unlock()
		}
	}
}

// removeLocked drops client from every group; h.mu must be held
func (h *Hub) removeLocked(client *Client, reason string) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for _, topic := range client.topics {
		if group, ok := h.groups[topic]; ok {
			delete(group, client)
			if len(group) == 0 {
				delete(h.groups, topic)
			}
		}
	}
	close(client.send)

	if err := client.machine.Trigger(state.EventClose); err != nil {
		h.logger.Warn("Unexpected connection state", zap.String("conn_id", client.id), zap.Error(err))
	}
	h.states.Remove(client.id)

	h.logger.Info("Hub client disconnected",
		zap.String("conn_id", client.id),
		zap.String("subject", client.subject),
		zap.String("reason", reason),
		zap.Int("total_clients", len(h.clients)))
}

// Publish queues event for every current member of topic. Delivery is
// best-effort: nothing is buffered for absent subscribers and a full queue
// drops the event.
func (h *Hub) Publish(topic, event string, payload interface{}) error {
	data, err := json.Marshal(Message{
		Type:      event,
		Topic:     topic,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	select {
	case h.publish <- envelope{topic: topic, data: data}:
	default:
		h.logger.Warn("Publish queue full, event dropped", zap.String("topic", topic), zap.String("event", event))
	}
	return nil
}

// ClientCount number of live connections
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MemberCount number of connections in topic's group
func (h *Hub) MemberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[topic])
}

// Topics names of groups with at least one member, sorted
func (h *Hub) Topics() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	topics := make([]string, 0, len(h.groups))
	for topic := range h.groups {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// NewClient creates a client for an authenticated connection. machine must
// already be in the connected state.
func NewClient(hub *Hub, conn *websocket.Conn, machine *state.Machine, subject string, topics []string) *Client {
	topics = append([]string(nil), topics...)
	machine.UpdateState(func(s *state.ConnectionState) {
		s.Subject = subject
		s.Topics = topics
	})
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.sendBuffer),
		id:      machine.ConnID(),
		subject: subject,
		topics:  topics,
		machine: machine,
	}
}

// Register joins the client's topic groups
func (c *Client) Register() {
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
		close(c.send)
		_ = c.machine.Trigger(state.EventClose)
		c.hub.states.Remove(c.id)
	}
}

// Unregister leaves every group
func (c *Client) Unregister() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// ReadPump discards client frames and keeps the read deadline alive
func (c *Client) ReadPump() {
	defer func() {
		c.Unregister()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// WritePump writes queued frames and pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
