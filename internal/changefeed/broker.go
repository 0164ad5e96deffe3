package changefeed

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	publishBuffer      = 1024
	subscriptionBuffer = 256
)

// Filter scopes a subscription to a subset of a table's rows. Filters are
// immutable for the lifetime of the subscription; changing the predicate
// requires Unsubscribe plus a fresh Subscribe.
type Filter func(Event) bool

type Handler func(Event)

// Broker fans row-level change events out to subscriptions. A single
// dispatch goroutine preserves publish order across every subscription,
// and each subscription consumes its own buffered channel in order, so
// events for a given row always arrive in commit order. Delivery is
// at-least-once at best: a subscription that cannot keep up has events
// dropped (logged), and consumers are expected to de-duplicate by row id
// and recount from the store when they need certainty.
type Broker struct {
	log logrus.FieldLogger

	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool

	events chan Event
	done   chan struct{}
}

// Subscription is one logical channel for a (table, filter) pair.
type Subscription struct {
	topic   string
	table   Table
	filter  Filter
	handler Handler

	ch   chan Event
	stop chan struct{}
	once sync.Once
}

func NewBroker(log logrus.FieldLogger) *Broker {
	b := &Broker{
		log:    log,
		subs:   make(map[string]*Subscription),
		events: make(chan Event, publishBuffer),
		done:   make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Subscribe opens one logical channel on a table. The topic must be unique
// among live subscriptions; reusing one is almost always a sign that two
// consumers would receive duplicate deliveries of the same stream.
func (b *Broker) Subscribe(topic string, table Table, filter Filter, handler Handler) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if _, exists := b.subs[topic]; exists {
		return nil, ErrDuplicateTopic
	}

	sub := &Subscription{
		topic:   topic,
		table:   table,
		filter:  filter,
		handler: handler,
		ch:      make(chan Event, subscriptionBuffer),
		stop:    make(chan struct{}),
	}
	b.subs[topic] = sub
	go sub.run()

	return sub, nil
}

// Unsubscribe tears a subscription down. Safe to call more than once.
func (b *Broker) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	if existing, ok := b.subs[sub.topic]; ok && existing == sub {
		delete(b.subs, sub.topic)
	}
	b.mu.Unlock()

	sub.once.Do(func() {
		close(sub.stop)
	})
}

// Publish enqueues a change event for delivery to matching subscriptions.
func (b *Broker) Publish(event Event) error {
	if err := event.validate(); err != nil {
		return err
	}

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	select {
	case b.events <- event:
		return nil
	default:
		b.log.WithFields(logrus.Fields{
			"table": event.Table,
			"type":  event.Type,
		}).Warn("changefeed publish buffer full, dropping event")
		return nil
	}
}

// Close stops dispatch and tears down every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[string]*Subscription)
	b.mu.Unlock()

	close(b.done)
	for _, sub := range subs {
		sub.once.Do(func() {
			close(sub.stop)
		})
	}
}

func (b *Broker) dispatch() {
	for {
		select {
		case <-b.done:
			return
		case event := <-b.events:
			b.deliver(event)
		}
	}
}

func (b *Broker) deliver(event Event) {
	b.mu.Lock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.table != event.Table {
			continue
		}
		if sub.filter != nil && !sub.filter(event) {
			continue
		}
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.ch <- event:
		default:
			b.log.WithField("topic", sub.topic).
				Warn("changefeed subscription buffer full, dropping event")
		}
	}
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.stop:
			return
		case event := <-s.ch:
			s.handler(event)
		}
	}
}
