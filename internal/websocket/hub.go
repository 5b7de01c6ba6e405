package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/americano-tennis/internal/domain"
)

// Message types
const (
	MessageTypeStandingsUpdate = "standings_update"
	MessageTypeMatchesUpdate   = "matches_update"
	MessageTypeSubscribe       = "subscribe"
	MessageTypeUnsubscribe     = "unsubscribe"
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
	MessageTypeError           = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type         string      `json:"type"`
	TournamentID int64       `json:"tournament_id,omitempty"`
	Data         interface{} `json:"data,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
}

// Hub tracks connected clients and the tournaments they follow
type Hub struct {
	// Subscribed clients by tournament ID
	subscribers map[int64]map[*Client]bool

	// All connected clients
	clients map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	broadcast   chan *Message
	subscribe   chan subscription
	unsubscribe chan subscription

	mu     sync.RWMutex
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscription struct {
	client       *Client
	tournamentID int64
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		subscribers: make(map[int64]map[*Client]bool),
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan subscription, 64),
		unsubscribe: make(chan subscription, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop; it returns after Stop
func (h *Hub) Run() {
	h.logger.Info("websocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("websocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				delete(h.clients, client)
				for tournamentID, subs := range h.subscribers {
					delete(subs, client)
					if len(subs) == 0 {
						delete(h.subscribers, tournamentID)
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case sub := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.subscribers[sub.tournamentID]; !ok {
				h.subscribers[sub.tournamentID] = make(map[*Client]bool)
			}
			h.subscribers[sub.tournamentID][sub.client] = true
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", sub.client.id, "tournament_id", sub.tournamentID)

		case sub := <-h.unsubscribe:
			h.mu.Lock()
			if subs, ok := h.subscribers[sub.tournamentID]; ok {
				delete(subs, sub.client)
				if len(subs) == 0 {
					delete(h.subscribers, sub.tournamentID)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", sub.client.id, "tournament_id", sub.tournamentID)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// deliver sends a message to the subscribers of its tournament, or to every
// client when it carries no tournament.
func (h *Hub) deliver(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	targets := h.clients
	if message.TournamentID != 0 {
		targets = h.subscribers[message.TournamentID]
	}
	for client := range targets {
		select {
		case client.send <- data:
		default:
			// Client's buffer is full, skip
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message",
			"type", message.Type,
			"tournament_id", message.TournamentID,
		)
	}
}

// BroadcastStandings sends the current standings of a tournament to its
// subscribers
func (h *Hub) BroadcastStandings(tournamentID int64, standings []domain.Standing) {
	h.enqueue(&Message{
		Type:         MessageTypeStandingsUpdate,
		TournamentID: tournamentID,
		Data:         standings,
		Timestamp:    time.Now(),
	})
}

// BroadcastMatches sends the full match list of a tournament to its
// subscribers
func (h *Hub) BroadcastMatches(tournamentID int64, matches []domain.Match) {
	h.enqueue(&Message{
		Type:         MessageTypeMatchesUpdate,
		TournamentID: tournamentID,
		Data:         matches,
		Timestamp:    time.Now(),
	})
}

// Register adds a client to the hub. It reports false once the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Subscribe adds a client to a tournament's subscribers
func (h *Hub) Subscribe(client *Client, tournamentID int64) {
	select {
	case h.subscribe <- subscription{client: client, tournamentID: tournamentID}:
	case <-h.ctx.Done():
	}
}

// Unsubscribe removes a client from a tournament's subscribers
func (h *Hub) Unsubscribe(client *Client, tournamentID int64) {
	select {
	case h.unsubscribe <- subscription{client: client, tournamentID: tournamentID}:
	case <-h.ctx.Done():
	}
}

// SubscriberCount returns the number of subscribers of a tournament
func (h *Hub) SubscriberCount(tournamentID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[tournamentID])
}

// ConnectionCount returns the total number of connected clients
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
