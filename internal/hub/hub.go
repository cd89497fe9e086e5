// Package hub fans out live question events to server-sent event streams.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Event kinds.
const (
	EventAnswer = "answer"
	EventVote   = "vote"
	EventAccept = "accept"
)

// Event represents a real-time event to be sent to clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Client is one open stream watching a question. The hub closes it on
// Unsubscribe.
type Client chan []byte

const clientBuffer = 16

// Hub tracks the clients watching each question.
type Hub struct {
	questions map[uint]map[Client]bool
	mu        sync.RWMutex
	log       *logrus.Logger
}

// New creates a new Hub.
func New(log *logrus.Logger) *Hub {
	return &Hub{
		questions: make(map[uint]map[Client]bool),
		log:       log,
	}
}

// Subscribe registers a new client for questionID.
func (h *Hub) Subscribe(questionID uint) Client {
	client := make(Client, clientBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.questions[questionID]; !ok {
		h.questions[questionID] = make(map[Client]bool)
	}
	h.questions[questionID][client] = true
	return client
}

// Unsubscribe removes a client and closes its channel.
func (h *Hub) Unsubscribe(questionID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.questions[questionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client)
			if len(clients) == 0 {
				delete(h.questions, questionID)
			}
		}
	}
}

// Subscribers reports how many clients watch questionID.
func (h *Hub) Subscribers(questionID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.questions[questionID])
}

// Broadcast sends an event to every client watching questionID. Slow
// clients with a full buffer miss the event.
func (h *Hub) Broadcast(questionID uint, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.questions[questionID]
	if !ok {
		return
	}
	message, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).WithField("type", event.Type).Error("Failed to encode event")
		return
	}
	for client := range clients {
		select {
		case client <- message:
		default:
			h.log.WithField("question_id", questionID).Debug("Dropped event for slow client")
		}
	}
}
