package chatws

import (
	"encoding/json"

	"github.com/fahad-m/CarRentBack/internal/models"
	"github.com/sirupsen/logrus"
)

type Hub struct {
	log        logrus.FieldLogger
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	outbound   chan outboundMessage
}

type outboundMessage struct {
	userID  string
	payload []byte
}

// Frame is the wire shape for every websocket message, client and server
// side. Type selects which fields are meaningful.
type Frame struct {
	Type           string               `json:"type"`
	ConversationID string               `json:"conversation_id,omitempty"`
	Content        string               `json:"content,omitempty"`
	TempID         string               `json:"temp_id,omitempty"`
	Message        *models.ChatMessage  `json:"message,omitempty"`
	Messages       []models.ChatMessage `json:"messages,omitempty"`
	Count          int                  `json:"count,omitempty"`
	Badge          string               `json:"badge,omitempty"`
	Error          string               `json:"error,omitempty"`
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan outboundMessage, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case message := <-h.outbound:
			h.sendToUser(message.userID, message.payload)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SendToUser delivers a payload to every open connection the user has.
func (h *Hub) SendToUser(userID string, payload []byte) {
	h.outbound <- outboundMessage{userID: userID, payload: payload}
}

// SendFrame marshals and delivers a frame to every connection of a user.
func (h *Hub) SendFrame(userID string, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.log.WithError(err).Warn("chat hub encode frame")
		return
	}
	h.SendToUser(userID, payload)
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}
