package services

import (
	"context"
	"strconv"

	"github.com/fahad-m/CarRentBack/internal/changefeed"
	"github.com/fahad-m/CarRentBack/internal/models"
	"github.com/sirupsen/logrus"
)

// badgeCap is the largest exact number the mailbox badge renders; anything
// above shows as "9+".
const badgeCap = 9

type unreadCounter interface {
	CountUnreadForUser(ctx context.Context, userID string) (int, error)
}

type conversationReader interface {
	GetByID(ctx context.Context, conversationID string) (*models.Conversation, error)
}

// UnreadService computes the per-user total of unread messages across all
// conversations. Every change event triggers a full recount for the
// affected participants rather than incremental bookkeeping; the per-user
// table sizes are small and a recount can never drift.
type UnreadService struct {
	counter       unreadCounter
	conversations conversationReader
	log           logrus.FieldLogger

	subs []*changefeed.Subscription
	feed *changefeed.Broker
}

func NewUnreadService(
	counter unreadCounter,
	conversations conversationReader,
	log logrus.FieldLogger,
) *UnreadService {
	return &UnreadService{
		counter:       counter,
		conversations: conversations,
		log:           log,
	}
}

func (s *UnreadService) Count(ctx context.Context, userID string) (int, error) {
	return s.counter.CountUnreadForUser(ctx, userID)
}

// Badge renders a count for display: empty at zero, capped at "9+".
func (s *UnreadService) Badge(count int) string {
	if count <= 0 {
		return ""
	}
	if count > badgeCap {
		return strconv.Itoa(badgeCap) + "+"
	}
	return strconv.Itoa(count)
}

// Watch subscribes to message and conversation changes and recounts for
// both participants of the affected conversation, pushing each fresh total
// through notify. The set of relevant conversations is dynamic, so the
// subscriptions are unfiltered.
func (s *UnreadService) Watch(
	feed *changefeed.Broker,
	notify func(userID string, count int),
) error {
	messageSub, err := feed.Subscribe("mailbox-messages", changefeed.TableMessages, nil,
		func(event changefeed.Event) {
			conversation, err := s.conversations.GetByID(
				context.Background(),
				event.Message.ConversationID,
			)
			if err != nil {
				s.log.WithError(err).Warn("failed to resolve conversation for unread recount")
				return
			}
			s.recount(conversation.RenterID, notify)
			s.recount(conversation.OwnerID, notify)
		})
	if err != nil {
		return err
	}

	conversationSub, err := feed.Subscribe("mailbox-conversations", changefeed.TableConversations, nil,
		func(event changefeed.Event) {
			s.recount(event.Conversation.RenterID, notify)
			s.recount(event.Conversation.OwnerID, notify)
		})
	if err != nil {
		feed.Unsubscribe(messageSub)
		return err
	}

	s.feed = feed
	s.subs = []*changefeed.Subscription{messageSub, conversationSub}
	return nil
}

// Unwatch tears down the Watch subscriptions. Idempotent.
func (s *UnreadService) Unwatch() {
	for _, sub := range s.subs {
		s.feed.Unsubscribe(sub)
	}
	s.subs = nil
}

func (s *UnreadService) recount(userID string, notify func(userID string, count int)) {
	count, err := s.counter.CountUnreadForUser(context.Background(), userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("failed to recount unread messages")
		return
	}
	notify(userID, count)
}
