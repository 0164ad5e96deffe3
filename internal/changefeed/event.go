package changefeed

import (
	"errors"

	"github.com/fahad-m/CarRentBack/internal/models"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
)

type Table string

const (
	TableMessages      Table = "messages"
	TableConversations Table = "conversations"
)

var (
	ErrClosed         = errors.New("changefeed: broker closed")
	ErrDuplicateTopic = errors.New("changefeed: topic already subscribed")
	ErrInvalidEvent   = errors.New("changefeed: event row does not match table")
)

// Event is a row-level change. The Table field tags which row pointer is
// set; exactly one of Message/Conversation must be non-nil and must match
// the table.
type Event struct {
	Type         EventType
	Table        Table
	Message      *models.ChatMessage
	Conversation *models.Conversation
}

func (e Event) validate() error {
	if e.Type != EventInsert && e.Type != EventUpdate {
		return ErrInvalidEvent
	}
	switch e.Table {
	case TableMessages:
		if e.Message == nil || e.Conversation != nil {
			return ErrInvalidEvent
		}
	case TableConversations:
		if e.Conversation == nil || e.Message != nil {
			return ErrInvalidEvent
		}
	default:
		return ErrInvalidEvent
	}
	return nil
}

func MessageInserted(message *models.ChatMessage) Event {
	return Event{Type: EventInsert, Table: TableMessages, Message: message}
}

func MessageUpdated(message *models.ChatMessage) Event {
	return Event{Type: EventUpdate, Table: TableMessages, Message: message}
}

func ConversationInserted(conversation *models.Conversation) Event {
	return Event{Type: EventInsert, Table: TableConversations, Conversation: conversation}
}

func ConversationUpdated(conversation *models.Conversation) Event {
	return Event{Type: EventUpdate, Table: TableConversations, Conversation: conversation}
}
