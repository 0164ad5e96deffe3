package chatws

import (
	"context"
	"encoding/json"
	"errors"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/sirupsen/logrus"

	"github.com/fahad-m/CarRentBack/internal/changefeed"
	"github.com/fahad-m/CarRentBack/internal/chat"
)

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte

	session *chat.Session
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

// ReadPump consumes client frames. "open" attaches the connection to one
// conversation by creating a chat session whose view events stream back as
// frames; "message" sends through that session; "close" detaches. Opening
// a second conversation closes the first session.
func (c *Client) ReadPump(stream chat.MessageStream, feed *changefeed.Broker, log logrus.FieldLogger) {
	defer func() {
		c.closeSession()
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming Frame
		if err := json.Unmarshal(payload, &incoming); err != nil {
			c.writeError("invalid message payload")
			continue
		}

		switch incoming.Type {
		case "open":
			if incoming.ConversationID == "" {
				c.writeError("conversation_id is required")
				continue
			}
			c.closeSession()

			session := chat.NewSession(
				incoming.ConversationID,
				c.userID,
				stream,
				feed,
				log,
				c.pushViewEvent,
			)
			if err := session.Open(context.Background()); err != nil {
				session.Close()
				log.WithError(err).WithField("conversation_id", incoming.ConversationID).
					Warn("failed to open chat session")
				c.writeError("failed to open conversation")
				continue
			}
			c.session = session
		case "message":
			if c.session == nil {
				c.writeError("no open conversation")
				continue
			}
			if err := c.session.Send(context.Background(), incoming.Content); err != nil {
				if errors.Is(err, chat.ErrEmptyContent) {
					c.writeError("message content is required")
				}
				// Other failures already produced a "fail" view event
				// rolling back the optimistic entry.
				continue
			}
		case "close":
			c.closeSession()
		default:
			c.writeError("unsupported message type")
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *Client) closeSession() {
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
}

func (c *Client) pushViewEvent(event chat.ViewEvent) {
	frame := Frame{TempID: event.TempID}
	switch event.Kind {
	case chat.ViewHistory:
		frame.Type = "history"
		frame.Messages = event.Messages
	case chat.ViewAppend:
		frame.Type = "message"
		frame.Message = event.Message
	case chat.ViewUpdate:
		frame.Type = "message_update"
		frame.Message = event.Message
	case chat.ViewConfirm:
		frame.Type = "sent"
		frame.Message = event.Message
	case chat.ViewFail:
		frame.Type = "send_failed"
	default:
		return
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	c.enqueue(payload)
}

func (c *Client) writeError(message string) {
	payload, err := json.Marshal(Frame{Type: "error", Error: message})
	if err != nil {
		return
	}
	c.enqueue(payload)
}

func (c *Client) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
		c.hub.Unregister(c)
	}
}
