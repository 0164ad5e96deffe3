package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fahad-m/CarRentBack/internal/changefeed"
	"github.com/fahad-m/CarRentBack/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyContent  = errors.New("chat: message content is empty")
	ErrSessionClosed = errors.New("chat: session closed")
	ErrSessionOpen   = errors.New("chat: session already open")
)

const tempIDPrefix = "temp-"

// MessageStream is the durable side of a conversation: one-shot history
// fetch, durable send, and best-effort read marking.
type MessageStream interface {
	FetchHistory(ctx context.Context, userID, conversationID string) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, userID, conversationID, content string) (*models.ChatMessage, error)
	MarkRead(ctx context.Context, userID string, messageIDs []string) error
}

type ViewKind string

const (
	// ViewHistory carries the initial merged snapshot.
	ViewHistory ViewKind = "history"
	// ViewAppend carries a newly visible message, optimistic or durable.
	ViewAppend ViewKind = "append"
	// ViewUpdate carries an in-place replacement (read-state change).
	ViewUpdate ViewKind = "update"
	// ViewConfirm replaces the optimistic entry TempID with Message.
	ViewConfirm ViewKind = "confirm"
	// ViewFail removes the optimistic entry TempID after a failed send.
	ViewFail ViewKind = "fail"
)

// ViewEvent describes one change to the session's rendered message list.
type ViewEvent struct {
	Kind     ViewKind
	Message  *models.ChatMessage
	Messages []models.ChatMessage
	TempID   string
}

type sendState int

const (
	sendPending sendState = iota
	sendConfirmed
	sendFailed
)

// inflightSend tracks one optimistic send: Pending until the durable write
// resolves it to Confirmed or Failed.
type inflightSend struct {
	tempID string
	state  sendState
}

// Session owns the live state of one open conversation: the fetched
// history, incoming change-feed events, and locally originated optimistic
// sends merged into a single list ordered by creation time. All state is
// guarded by a mutex, and every view event is emitted while the mutex is
// held with the closed flag checked, so once Close returns no further
// view events can be observed. The onView callback therefore must not
// call back into the session.
type Session struct {
	conversationID string
	userID         string
	stream         MessageStream
	feed           *changefeed.Broker
	log            logrus.FieldLogger
	onView         func(ViewEvent)

	mu       sync.Mutex
	closed   bool
	opened   bool
	messages []models.ChatMessage
	present  map[string]bool
	sends    map[string]*inflightSend
	sub      *changefeed.Subscription
}

func NewSession(
	conversationID string,
	userID string,
	stream MessageStream,
	feed *changefeed.Broker,
	log logrus.FieldLogger,
	onView func(ViewEvent),
) *Session {
	if onView == nil {
		onView = func(ViewEvent) {}
	}
	return &Session{
		conversationID: conversationID,
		userID:         userID,
		stream:         stream,
		feed:           feed,
		log:            log,
		onView:         onView,
		messages:       make([]models.ChatMessage, 0),
		present:        make(map[string]bool),
		sends:          make(map[string]*inflightSend),
	}
}

// Open subscribes to the conversation's change feed and then fetches the
// history snapshot. Subscribing first means no event created during the
// fetch is missed; the id-based de-duplication absorbs any overlap between
// the two sources. A session opens at most once; reopening requires a new
// session.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.opened {
		s.mu.Unlock()
		return ErrSessionOpen
	}
	s.opened = true
	s.mu.Unlock()

	topic := "chat-" + s.conversationID + "-" + uuid.NewString()
	conversationID := s.conversationID
	sub, err := s.feed.Subscribe(topic, changefeed.TableMessages, func(event changefeed.Event) bool {
		return event.Message != nil && event.Message.ConversationID == conversationID
	}, s.handleFeedEvent)
	if err != nil {
		s.mu.Lock()
		s.opened = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.feed.Unsubscribe(sub)
		return ErrSessionClosed
	}
	s.sub = sub
	s.mu.Unlock()

	history, err := s.stream.FetchHistory(ctx, s.userID, s.conversationID)
	if err != nil {
		s.feed.Unsubscribe(sub)
		s.mu.Lock()
		s.sub = nil
		s.opened = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	unread := make([]string, 0)
	for _, message := range history {
		if s.present[message.ID] {
			continue
		}
		s.insertOrdered(message)
		if message.SenderID != s.userID && !message.IsRead {
			unread = append(unread, message.ID)
		}
	}
	s.onView(ViewEvent{Kind: ViewHistory, Messages: s.snapshotLocked()})
	s.mu.Unlock()

	if len(unread) > 0 {
		s.markRead(ctx, unread)
	}
	return nil
}

// Send appends an optimistic entry immediately, then issues the durable
// write. On success the optimistic entry is replaced by the durable row
// (or simply removed when the feed echo already delivered it); on failure
// the entry is removed and the error returned so the caller can offer a
// retry with the original content.
func (s *Session) Send(ctx context.Context, content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ErrEmptyContent
	}

	tempID := tempIDPrefix + uuid.NewString()
	optimistic := models.ChatMessage{
		ID:             tempID,
		ConversationID: s.conversationID,
		SenderID:       s.userID,
		Content:        trimmed,
		CreatedAt:      time.Now().UTC(),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.messages = append(s.messages, optimistic)
	s.present[tempID] = true
	s.sends[tempID] = &inflightSend{tempID: tempID, state: sendPending}
	s.onView(ViewEvent{Kind: ViewAppend, Message: &optimistic})
	s.mu.Unlock()

	message, err := s.stream.SendMessage(ctx, s.userID, s.conversationID, trimmed)
	if err != nil {
		s.mu.Lock()
		if !s.closed && s.resolveSendLocked(tempID, sendFailed) && s.removeLocked(tempID) {
			s.onView(ViewEvent{Kind: ViewFail, TempID: tempID})
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.resolveSendLocked(tempID, sendConfirmed) {
		s.removeLocked(tempID)
		if !s.present[message.ID] {
			s.insertOrdered(*message)
		}
		s.onView(ViewEvent{Kind: ViewConfirm, TempID: tempID, Message: message})
	}
	s.mu.Unlock()
	return nil
}

// Close tears the subscription down and freezes the session. Callbacks
// already holding the mutex finish first; anything arriving later is a
// no-op, so no view event is emitted after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		s.feed.Unsubscribe(sub)
	}
}

// Messages returns a copy of the current ordered view.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) handleFeedEvent(event changefeed.Event) {
	message := event.Message
	if message == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	switch event.Type {
	case changefeed.EventInsert:
		if s.present[message.ID] {
			s.mu.Unlock()
			return
		}
		s.insertOrdered(*message)
		s.onView(ViewEvent{Kind: ViewAppend, Message: message})
		s.mu.Unlock()

		if message.SenderID != s.userID && !message.IsRead {
			s.markRead(context.Background(), []string{message.ID})
		}
	case changefeed.EventUpdate:
		for i := range s.messages {
			if s.messages[i].ID == message.ID {
				s.messages[i] = *message
				s.onView(ViewEvent{Kind: ViewUpdate, Message: message})
				break
			}
		}
		s.mu.Unlock()
	default:
		s.mu.Unlock()
	}
}

func (s *Session) markRead(ctx context.Context, messageIDs []string) {
	if err := s.stream.MarkRead(ctx, s.userID, messageIDs); err != nil {
		s.log.WithError(err).WithField("conversation_id", s.conversationID).
			Warn("failed to mark messages read")
	}
}

// resolveSendLocked transitions an in-flight send out of Pending. Only a
// pending send resolves; a second resolution for the same temp id reports
// false so callers skip the view work.
func (s *Session) resolveSendLocked(tempID string, to sendState) bool {
	send, ok := s.sends[tempID]
	if !ok || send.state != sendPending {
		return false
	}
	send.state = to
	delete(s.sends, tempID)
	return true
}

// insertOrdered keeps the list ascending by (created_at, id). Events may
// arrive out of commit order across rows; inserting by timestamp keeps the
// rendered order stable regardless.
func (s *Session) insertOrdered(message models.ChatMessage) {
	position := len(s.messages)
	for position > 0 {
		previous := s.messages[position-1]
		if previous.CreatedAt.Before(message.CreatedAt) {
			break
		}
		if previous.CreatedAt.Equal(message.CreatedAt) && previous.ID <= message.ID {
			break
		}
		position--
	}

	s.messages = append(s.messages, models.ChatMessage{})
	copy(s.messages[position+1:], s.messages[position:])
	s.messages[position] = message
	s.present[message.ID] = true
}

func (s *Session) removeLocked(id string) bool {
	if !s.present[id] {
		return false
	}
	delete(s.present, id)
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Session) snapshotLocked() []models.ChatMessage {
	snapshot := make([]models.ChatMessage, len(s.messages))
	copy(snapshot, s.messages)
	return snapshot
}
