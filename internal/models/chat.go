package models

import "time"

type Conversation struct {
	ID        string    `json:"id"`
	RenterID  string    `json:"renter_id"`
	OwnerID   string    `json:"owner_id"`
	CarID     int64     `json:"car_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OtherParticipant returns the counterpart of userID in the conversation.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.OwnerID == userID {
		return c.RenterID
	}
	return c.OwnerID
}

type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationSummary struct {
	Conversation
	CounterpartName   string       `json:"counterpart_name"`
	CounterpartAvatar *string      `json:"counterpart_avatar"`
	CarTitle          string       `json:"car_title"`
	LastMessage       *ChatMessage `json:"last_message,omitempty"`
	UnreadCount       int          `json:"unread_count"`
}
