package changefeed

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fahad-m/CarRentBack/internal/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func collectEvents(t *testing.T, ch <-chan Event, n int) []Event {
	t.Helper()
	events := make([]Event, 0, n)
	for len(events) < n {
		select {
		case event := <-ch:
			events = append(events, event)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", len(events)+1, n)
		}
	}
	return events
}

func TestSubscribeRejectsDuplicateTopic(t *testing.T) {
	broker := NewBroker(testLogger())
	defer broker.Close()

	_, err := broker.Subscribe("chat-1", TableMessages, nil, func(Event) {})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if _, err := broker.Subscribe("chat-1", TableMessages, nil, func(Event) {}); err != ErrDuplicateTopic {
		t.Fatalf("expected ErrDuplicateTopic, got %v", err)
	}
}

func TestPublishPreservesOrderPerSubscription(t *testing.T) {
	broker := NewBroker(testLogger())
	defer broker.Close()

	received := make(chan Event, 16)
	_, err := broker.Subscribe("chat-order", TableMessages, nil, func(event Event) {
		received <- event
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	ids := []string{"m1", "m2", "m3", "m4"}
	for _, id := range ids {
		event := MessageInserted(&models.ChatMessage{ID: id, ConversationID: "c1"})
		if err := broker.Publish(event); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	events := collectEvents(t, received, len(ids))
	for i, event := range events {
		if event.Message.ID != ids[i] {
			t.Fatalf("event %d: expected %s, got %s", i, ids[i], event.Message.ID)
		}
	}
}

func TestFilterScopesDelivery(t *testing.T) {
	broker := NewBroker(testLogger())
	defer broker.Close()

	received := make(chan Event, 16)
	_, err := broker.Subscribe("chat-c1", TableMessages, func(event Event) bool {
		return event.Message.ConversationID == "c1"
	}, func(event Event) {
		received <- event
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	_ = broker.Publish(MessageInserted(&models.ChatMessage{ID: "other", ConversationID: "c2"}))
	_ = broker.Publish(MessageInserted(&models.ChatMessage{ID: "mine", ConversationID: "c1"}))

	events := collectEvents(t, received, 1)
	if events[0].Message.ID != "mine" {
		t.Fatalf("expected filtered event, got %s", events[0].Message.ID)
	}

	select {
	case event := <-received:
		t.Fatalf("unexpected extra event: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTableScopesDelivery(t *testing.T) {
	broker := NewBroker(testLogger())
	defer broker.Close()

	received := make(chan Event, 16)
	_, err := broker.Subscribe("conversations", TableConversations, nil, func(event Event) {
		received <- event
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	_ = broker.Publish(MessageInserted(&models.ChatMessage{ID: "m1", ConversationID: "c1"}))
	_ = broker.Publish(ConversationUpdated(&models.Conversation{ID: "c1"}))

	events := collectEvents(t, received, 1)
	if events[0].Table != TableConversations || events[0].Conversation.ID != "c1" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	broker := NewBroker(testLogger())
	defer broker.Close()

	received := make(chan Event, 16)
	sub, err := broker.Subscribe("chat-stop", TableMessages, nil, func(event Event) {
		received <- event
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	broker.Unsubscribe(sub)
	broker.Unsubscribe(sub)

	_ = broker.Publish(MessageInserted(&models.ChatMessage{ID: "m1", ConversationID: "c1"}))

	select {
	case event := <-received:
		t.Fatalf("unexpected event after unsubscribe: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}

	// The topic is free again after unsubscribe.
	if _, err := broker.Subscribe("chat-stop", TableMessages, nil, func(Event) {}); err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
}

func TestPublishRejectsInvalidEvent(t *testing.T) {
	broker := NewBroker(testLogger())
	defer broker.Close()

	if err := broker.Publish(Event{Type: EventInsert, Table: TableMessages}); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent for missing row, got %v", err)
	}
	if err := broker.Publish(Event{
		Type:         EventInsert,
		Table:        TableMessages,
		Message:      &models.ChatMessage{ID: "m1"},
		Conversation: &models.Conversation{ID: "c1"},
	}); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent for double row, got %v", err)
	}
	if err := broker.Publish(Event{Type: "DELETE", Table: TableMessages, Message: &models.ChatMessage{ID: "m1"}}); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent for unknown type, got %v", err)
	}
}

func TestClosedBrokerRejectsOperations(t *testing.T) {
	broker := NewBroker(testLogger())
	broker.Close()
	broker.Close()

	if _, err := broker.Subscribe("chat-1", TableMessages, nil, func(Event) {}); err != ErrClosed {
		t.Fatalf("expected ErrClosed from Subscribe, got %v", err)
	}
	if err := broker.Publish(MessageInserted(&models.ChatMessage{ID: "m1", ConversationID: "c1"})); err != ErrClosed {
		t.Fatalf("expected ErrClosed from Publish, got %v", err)
	}
}
