package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fahad-m/CarRentBack/internal/changefeed"
	"github.com/fahad-m/CarRentBack/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

type conversationStore interface {
	FindByParticipants(ctx context.Context, renterID, ownerID string, carID int64) (*models.Conversation, error)
	Create(ctx context.Context, renterID, ownerID string, carID int64) (*models.Conversation, error)
	GetByID(ctx context.Context, conversationID string) (*models.Conversation, error)
	GetByIDForParticipant(ctx context.Context, conversationID, participantID string) (*models.Conversation, error)
	ListForParticipant(ctx context.Context, participantID string) ([]models.ConversationSummary, error)
	Touch(ctx context.Context, conversationID string) (time.Time, error)
}

type messageStore interface {
	Create(ctx context.Context, conversationID, senderID, content string) (*models.ChatMessage, error)
	ListByConversation(ctx context.Context, conversationID string) ([]models.ChatMessage, error)
	MarkMessagesRead(ctx context.Context, messageIDs []string, readerID string) ([]models.ChatMessage, error)
}

type profileReader interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

type carReader interface {
	GetByID(ctx context.Context, id int64) (*models.Car, error)
}

type userReader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type ChatService struct {
	conversations conversationStore
	messages      messageStore
	profiles      profileReader
	cars          carReader
	users         userReader
	feed          *changefeed.Broker
	log           logrus.FieldLogger
}

func NewChatService(
	conversations conversationStore,
	messages messageStore,
	profiles profileReader,
	cars carReader,
	users userReader,
	feed *changefeed.Broker,
	log logrus.FieldLogger,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		profiles:      profiles,
		cars:          cars,
		users:         users,
		feed:          feed,
		log:           log,
	}
}

// StartConversation resolves the single conversation for a (renter, owner,
// car) triple, creating it when absent. Lookup-before-create: two callers
// racing through the gap can both create, leaving two rows for the triple.
// That window is documented behavior, not reconciled here.
func (s *ChatService) StartConversation(
	ctx context.Context,
	renterID string,
	ownerID string,
	carID int64,
) (*models.Conversation, error) {
	if renterID == "" || ownerID == "" || carID <= 0 {
		return nil, ErrInvalidInput
	}
	if renterID == ownerID {
		return nil, ErrInvalidInput
	}

	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	car, err := s.cars.GetByID(ctx, carID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCarNotFound
		}
		return nil, err
	}
	if car.OwnerID != ownerID {
		return nil, ErrInvalidInput
	}

	existing, err := s.conversations.FindByParticipants(ctx, renterID, ownerID, carID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	conversation, err := s.conversations.Create(ctx, renterID, ownerID, carID)
	if err != nil {
		return nil, err
	}

	s.publish(changefeed.ConversationInserted(conversation))
	return conversation, nil
}

// ListConversations returns the user's conversations most-recently-active
// first, enriched with counterpart display data and the car title. Missing
// profile or car rows degrade to placeholders rather than failing the list.
func (s *ChatService) ListConversations(
	ctx context.Context,
	userID string,
) ([]models.ConversationSummary, error) {
	summaries, err := s.conversations.ListForParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range summaries {
		isOwner := summaries[i].OwnerID == userID
		counterpartID := summaries[i].OtherParticipant(userID)

		name := "Car Owner"
		if isOwner {
			name = "Renter"
		}
		profile, err := s.profiles.GetByID(ctx, counterpartID)
		if err == nil && profile.FullName != nil && *profile.FullName != "" {
			name = *profile.FullName
			summaries[i].CounterpartAvatar = profile.AvatarURL
		}
		summaries[i].CounterpartName = name

		title := fmt.Sprintf("Car ID: %d", summaries[i].CarID)
		if car, err := s.cars.GetByID(ctx, summaries[i].CarID); err == nil {
			title = car.Title
		}
		summaries[i].CarTitle = title
	}

	return summaries, nil
}

// FetchHistory returns the full ascending message log, scoped to
// participants.
func (s *ChatService) FetchHistory(
	ctx context.Context,
	userID string,
	conversationID string,
) ([]models.ChatMessage, error) {
	if conversationID == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.conversations.GetByIDForParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	return s.messages.ListByConversation(ctx, conversationID)
}

// SendMessage appends a message to the conversation and bumps the parent's
// updated_at. The bump is a second, independent write: a failure between
// the two leaves the message durable and the recency stale, which heals on
// the next message.
func (s *ChatService) SendMessage(
	ctx context.Context,
	userID string,
	conversationID string,
	content string,
) (*models.ChatMessage, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}
	if conversationID == "" {
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversations.GetByIDForParticipant(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	message, err := s.messages.Create(ctx, conversationID, userID, trimmed)
	if err != nil {
		return nil, err
	}
	s.publish(changefeed.MessageInserted(message))

	updatedAt, err := s.conversations.Touch(ctx, conversationID)
	if err != nil {
		s.log.WithError(err).WithField("conversation_id", conversationID).
			Warn("failed to bump conversation recency")
		return message, nil
	}
	conversation.UpdatedAt = updatedAt
	s.publish(changefeed.ConversationUpdated(conversation))

	return message, nil
}

// MarkRead flips read-state on messages addressed to the reader. Callers
// treat failures as best-effort; the updated rows are echoed to the feed.
func (s *ChatService) MarkRead(
	ctx context.Context,
	userID string,
	messageIDs []string,
) error {
	if len(messageIDs) == 0 {
		return nil
	}

	updated, err := s.messages.MarkMessagesRead(ctx, messageIDs, userID)
	if err != nil {
		return err
	}

	for i := range updated {
		message := updated[i]
		s.publish(changefeed.MessageUpdated(&message))
	}
	return nil
}

func (s *ChatService) publish(event changefeed.Event) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(event); err != nil {
		s.log.WithError(err).Warn("failed to publish change event")
	}
}
